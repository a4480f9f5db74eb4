package gomodel

import (
	"go/ast"
	"go/parser"
	"go/token"
	"sort"

	"github.com/teranos/stagegen/errors"
)

// FromSource builds a version-0 package from in-memory files keyed by file
// name. Imports are type-checked from source.
func FromSource(path string, files map[string]string) (*Package, error) {
	if len(files) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "package %s has no files", path)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	fset := token.NewFileSet()
	p := &Package{
		path:     path,
		fset:     fset,
		importer: newImporter(fset, nil),
	}
	for _, name := range names {
		f, err := parser.ParseFile(fset, name, files[name], parser.ParseComments)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		if p.name == "" {
			p.name = f.Name.Name
		} else if f.Name.Name != p.name {
			return nil, errors.Newf("%s declares package %s, want %s", name, f.Name.Name, p.name)
		}
		p.files = append(p.files, f)
		p.filenames = append(p.filenames, name)
	}

	p.check()
	return p, nil
}

// fromSyntax wraps syntax already type-checked by go/packages.
func fromSyntax(path, name, dir, module string, fset *token.FileSet, files []*ast.File, filenames []string) *Package {
	return &Package{
		path:      path,
		name:      name,
		dir:       dir,
		module:    module,
		fset:      fset,
		files:     files,
		filenames: filenames,
	}
}
