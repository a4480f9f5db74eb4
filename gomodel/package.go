// Package gomodel is the program model of stagegen: a Go package loaded with
// golang.org/x/tools/go/packages, versioned by folding generated files back
// into it and type-checking again.
package gomodel

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/model"
)

// Package is an immutable snapshot of one Go package.
type Package struct {
	version int
	path    string
	name    string
	dir     string
	module  string

	fset      *token.FileSet
	files     []*ast.File
	filenames []string
	types     *types.Package
	info      *types.Info
	errs      []error

	importer  types.Importer
	artifacts []model.Artifact
}

var _ model.Snapshot = (*Package)(nil)

func (p *Package) Version() int { return p.version }

// HasErrors reports whether loading or type-checking the package failed.
func (p *Package) HasErrors() bool { return len(p.errs) > 0 }

// Errors returns the load and type errors of this version.
func (p *Package) Errors() []error {
	out := make([]error, len(p.errs))
	copy(out, p.errs)
	return out
}

// Path returns the import path.
func (p *Package) Path() string { return p.path }

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// Dir returns the package directory ("" for in-memory packages).
func (p *Package) Dir() string { return p.dir }

// Module returns the path of the enclosing module, if known.
func (p *Package) Module() string { return p.module }

// Fset returns the file set positions of this package refer to.
func (p *Package) Fset() *token.FileSet { return p.fset }

// Types returns the type-checked package.
func (p *Package) Types() *types.Package { return p.types }

// Info returns the type information of the syntax.
func (p *Package) Info() *types.Info { return p.info }

// Files returns the syntax trees, including folded artifacts.
func (p *Package) Files() []*ast.File {
	out := make([]*ast.File, len(p.files))
	copy(out, p.files)
	return out
}

// Filename returns the name of the file holding f.
func (p *Package) Filename(f *ast.File) string {
	for i, file := range p.files {
		if file == f {
			return p.filenames[i]
		}
	}
	return ""
}

// Artifacts returns the artifacts folded into this version.
func (p *Package) Artifacts() []model.Artifact {
	out := make([]model.Artifact, len(p.artifacts))
	copy(out, p.artifacts)
	return out
}

// Lookup returns the package-level object called name, or nil.
func (p *Package) Lookup(name string) types.Object {
	if p.types == nil {
		return nil
	}
	return p.types.Scope().Lookup(name)
}

// Imports returns the imported package with the given path, or nil.
func (p *Package) Imports(path string) *types.Package {
	if p.types == nil {
		return nil
	}
	for _, imp := range p.types.Imports() {
		if imp.Path() == path {
			return imp
		}
	}
	return nil
}

// Fold parses artifacts as Go files of the package and type-checks the
// result into the next version. Type errors of the new version are recorded
// on it; a file that does not parse fails the fold.
func (p *Package) Fold(ctx context.Context, artifacts []model.Artifact) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next := &Package{
		version:   p.version + 1,
		path:      p.path,
		name:      p.name,
		dir:       p.dir,
		module:    p.module,
		fset:      p.fset,
		files:     append(make([]*ast.File, 0, len(p.files)+len(artifacts)), p.files...),
		filenames: append(make([]string, 0, len(p.filenames)+len(artifacts)), p.filenames...),
		importer:  p.importer,
		artifacts: append(make([]model.Artifact, 0, len(p.artifacts)+len(artifacts)), p.artifacts...),
	}

	for _, a := range artifacts {
		filename := a.Name
		if p.dir != "" {
			filename = filepath.Join(p.dir, a.Name)
		}
		f, err := parser.ParseFile(p.fset, filename, a.Source, parser.ParseComments)
		if err != nil {
			return nil, errors.Wrapf(err, "parse artifact %s", a.Name)
		}
		if f.Name.Name != p.name {
			return nil, errors.Newf("artifact %s declares package %s, want %s", a.Name, f.Name.Name, p.name)
		}
		next.files = append(next.files, f)
		next.filenames = append(next.filenames, filename)
		next.artifacts = append(next.artifacts, a)
	}

	next.check()
	return next, nil
}

// check type-checks the syntax of p, recording errors instead of failing.
func (p *Package) check() {
	p.errs = nil
	p.info = newInfo()
	conf := types.Config{
		Importer: p.importer,
		Error: func(err error) {
			p.errs = append(p.errs, err)
		},
	}
	p.types, _ = conf.Check(p.path, p.fset, p.files, p.info)
}

func newInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}

// mapImporter resolves the imports already type-checked by go/packages and
// falls back to type-checking from source for anything generated code adds.
type mapImporter struct {
	known    map[string]*types.Package
	fallback types.Importer
}

func newImporter(fset *token.FileSet, known map[string]*types.Package) types.Importer {
	return &mapImporter{
		known:    known,
		fallback: importer.ForCompiler(fset, "source", nil),
	}
}

func (m *mapImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := m.known[path]; ok {
		return pkg, nil
	}
	pkg, err := m.fallback.Import(path)
	if err != nil {
		return nil, errors.Wrapf(err, "import %s", path)
	}
	return pkg, nil
}
