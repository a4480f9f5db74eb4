package gomodel

import (
	"context"
	"go/types"
	"path/filepath"
	"strings"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/logger"
	"github.com/teranos/stagegen/model"
	"github.com/teranos/stagegen/pass"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"
)

// LoadMode is the go/packages mode the loader requests.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedModule

// Loader builds the initial snapshot of an invocation with go/packages.
// It implements pass.Provider.
type Loader struct {
	// BuildFlags are passed to the build system (e.g. -tags)
	BuildFlags []string
	// Env overrides the environment of the build system when non-nil
	Env []string

	log *zap.SugaredLogger
}

var _ pass.Provider = (*Loader)(nil)

// NewLoader creates a Loader. Files generated by earlier runs are excluded
// through the GeneratedTag build constraint.
func NewLoader(buildFlags ...string) *Loader {
	return &Loader{
		BuildFlags: append([]string{"-tags=" + GeneratedTag}, buildFlags...),
		log:        logger.ComponentLogger("gomodel"),
	}
}

// Load loads exactly one package matching inv.Patterns from inv.Dir.
// Pattern and listing errors fail the load; type errors are kept on the
// returned package.
func (l *Loader) Load(ctx context.Context, inv pass.Invocation) (model.Snapshot, error) {
	patterns := inv.Patterns
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	cfg := &packages.Config{
		Mode:       LoadMode,
		Context:    ctx,
		Dir:        inv.Dir,
		Env:        l.Env,
		BuildFlags: l.BuildFlags,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", strings.Join(patterns, " "))
	}
	if len(pkgs) != 1 {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidArgument, "%s matched %d packages, want exactly one", strings.Join(patterns, " "), len(pkgs)),
			"run one pass per package")
	}

	pkg := pkgs[0]
	var loadErrs []error
	for _, e := range pkg.Errors {
		if e.Kind == packages.ListError {
			return nil, errors.Newf("package %s: %s", pkg.PkgPath, e.Msg)
		}
		loadErrs = append(loadErrs, errors.Newf("%s", e.Error()))
	}

	dir := inv.Dir
	if len(pkg.GoFiles) > 0 {
		dir = filepath.Dir(pkg.GoFiles[0])
	}
	module := ""
	if pkg.Module != nil {
		module = pkg.Module.Path
	}

	known := make(map[string]*types.Package)
	packages.Visit([]*packages.Package{pkg}, nil, func(dep *packages.Package) {
		if dep != pkg && dep.Types != nil {
			known[dep.PkgPath] = dep.Types
		}
	})

	p := fromSyntax(pkg.PkgPath, pkg.Name, dir, module, pkg.Fset, pkg.Syntax, pkg.CompiledGoFiles)
	p.types = pkg.Types
	p.info = pkg.TypesInfo
	p.errs = loadErrs
	p.importer = newImporter(pkg.Fset, known)

	l.log.Debugw("Loaded package",
		logger.FieldPackage, pkg.PkgPath,
		logger.FieldDir, dir,
		logger.FieldCount, len(pkg.Syntax),
		"errors", len(loadErrs))
	return p, nil
}
