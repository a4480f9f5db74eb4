package gomodel

import (
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/pass"
	"golang.org/x/mod/modfile"
)

// RequireModule returns a precondition that the module enclosing
// Invocation.Dir requires path at a version satisfying constraint.
// The module path itself and replace directives onto local directories
// always satisfy it. An empty constraint accepts any version.
func RequireModule(path, constraint string) pass.Precondition {
	return func(inv pass.Invocation) error {
		var c *semver.Constraints
		if constraint != "" {
			var err error
			c, err = semver.NewConstraint(constraint)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidArgument, "version constraint %q: %v", constraint, err)
			}
		}

		gomod, err := FindGoMod(inv.Dir)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(gomod)
		if err != nil {
			return errors.Wrapf(err, "read %s", gomod)
		}
		f, err := modfile.Parse(gomod, data, nil)
		if err != nil {
			return errors.Wrapf(err, "parse %s", gomod)
		}

		if f.Module != nil && f.Module.Mod.Path == path {
			return nil
		}
		for _, rep := range f.Replace {
			if rep.Old.Path == path && rep.New.Version == "" {
				return nil
			}
		}
		for _, req := range f.Require {
			if req.Mod.Path != path {
				continue
			}
			if c == nil {
				return nil
			}
			v, err := semver.NewVersion(req.Mod.Version)
			if err != nil {
				return errors.NewPreconditionError("%s requires %s at unparsable version %s", gomod, path, req.Mod.Version)
			}
			if !c.Check(v) {
				return errors.WithHintf(
					errors.NewPreconditionError("%s requires %s %s, want %s", gomod, path, req.Mod.Version, constraint),
					"go get %s@latest", path)
			}
			return nil
		}

		return errors.WithHintf(
			errors.NewPreconditionError("%s does not require %s", gomod, path),
			"generated code depends on it: go get %s", path)
	}
}

// FindGoMod walks up from dir to the nearest go.mod.
func FindGoMod(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", dir)
	}
	for d := abs; ; {
		candidate := filepath.Join(d, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", errors.NewPreconditionError("no go.mod found above %s", abs)
		}
		d = parent
	}
}
