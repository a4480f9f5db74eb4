package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teranos/stagegen/config"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/logger"
)

// generatedMarker opens the header of every file stagegen writes.
const generatedMarker = "// Code generated by stagegen"

// DriftKind classifies a difference between generated output and disk.
type DriftKind string

const (
	DriftMissing DriftKind = "missing" // generated but not on disk
	DriftChanged DriftKind = "changed" // on disk with different content
	DriftStale   DriftKind = "stale"   // on disk but no longer generated
)

// Drift is one out-of-date generated file.
type Drift struct {
	Kind DriftKind
	Path string
}

func (d Drift) String() string {
	return string(d.Kind) + " " + d.Path
}

// Write stores the artifacts of completed outcomes next to their package
// sources and removes stale generated files. Faulted outcomes and packages
// that do not type-check are left untouched. mark, when not nil, is called
// with every path before it is written or removed.
func Write(outcomes []Outcome, suffix string, mark func(path string)) ([]string, error) {
	var written []string
	for _, o := range outcomes {
		if !usable(o) {
			continue
		}
		keep := make(map[string]bool)
		for _, a := range o.Result.Artifacts {
			path := filepath.Join(o.Target.Dir, a.Name)
			keep[path] = true
			if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, a.Source) {
				continue
			}
			if mark != nil {
				mark(path)
			}
			if err := os.WriteFile(path, a.Source, config.DefaultFilePermissions); err != nil {
				return written, errors.Wrapf(err, "failed to write %s", path)
			}
			written = append(written, path)
			logger.Debugw("Wrote artifact", logger.FieldFile, path, logger.FieldGroup, a.Group)
		}

		stale, err := generatedFiles(o.Target.Dir, suffix)
		if err != nil {
			return written, err
		}
		for _, path := range stale {
			if keep[path] {
				continue
			}
			if mark != nil {
				mark(path)
			}
			if err := os.Remove(path); err != nil {
				return written, errors.Wrapf(err, "failed to remove stale %s", path)
			}
			logger.Infow("Removed stale artifact", logger.FieldFile, path)
		}
	}
	return written, nil
}

// Check compares the artifacts of completed outcomes with the files on disk
// without writing anything.
func Check(outcomes []Outcome, suffix string) ([]Drift, error) {
	var drift []Drift
	for _, o := range outcomes {
		if !usable(o) {
			continue
		}
		keep := make(map[string]bool)
		for _, a := range o.Result.Artifacts {
			path := filepath.Join(o.Target.Dir, a.Name)
			keep[path] = true
			current, err := os.ReadFile(path)
			switch {
			case os.IsNotExist(err):
				drift = append(drift, Drift{Kind: DriftMissing, Path: path})
			case err != nil:
				return nil, errors.Wrapf(err, "failed to read %s", path)
			case !bytes.Equal(current, a.Source):
				drift = append(drift, Drift{Kind: DriftChanged, Path: path})
			}
		}

		onDisk, err := generatedFiles(o.Target.Dir, suffix)
		if err != nil {
			return nil, err
		}
		for _, path := range onDisk {
			if !keep[path] {
				drift = append(drift, Drift{Kind: DriftStale, Path: path})
			}
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].Path < drift[j].Path })
	return drift, nil
}

// generatedFiles lists the files in dir that carry the output suffix and
// the stagegen header.
func generatedFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		if bytes.HasPrefix(src, []byte(generatedMarker)) {
			files = append(files, path)
		}
	}
	return files, nil
}

// IsGenerated reports whether path names a file stagegen writes.
func IsGenerated(path, suffix string) bool {
	return strings.HasSuffix(path, suffix)
}

func dirOf(file string) string {
	return filepath.Dir(file)
}

// usable reports whether o's artifacts describe the package completely.
// Output that does not type-check after the last fold is never written.
func usable(o Outcome) bool {
	return o.OK() && o.Result.Snapshot != nil && !o.Result.Snapshot.HasErrors()
}
