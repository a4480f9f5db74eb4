package gomodel

import (
	"fmt"

	"github.com/teranos/stagegen/errors"
	"golang.org/x/tools/imports"
)

// GeneratedTag is the build tag under which generated files are left out.
// The loader sets it so a rerun does not see its own previous output.
const GeneratedTag = "stagegen"

// Header returns the preamble of a generated file of package pkg.
func Header(generator, pkg string) string {
	return fmt.Sprintf("// Code generated by stagegen %s. DO NOT EDIT.\n\n//go:build !%s\n\npackage %s\n", generator, GeneratedTag, pkg)
}

// Format gofmts src and fixes its import block.
func Format(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "format %s", filename)
	}
	return out, nil
}
