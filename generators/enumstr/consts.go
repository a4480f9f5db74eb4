package enumstr

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/teranos/stagegen/gomodel"
)

// member is one declared constant of an enum type.
type member struct {
	Name  string
	Value constant.Value
}

// collectMembers returns the constants of type t in declaration order.
// Values come from the type checker, so iota blocks and implicit repetition
// are resolved.
func collectMembers(p *gomodel.Package, t types.Type) []member {
	var out []member
	for _, f := range p.Files() {
		for _, decl := range f.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.CONST {
				continue
			}
			for _, spec := range gen.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, ident := range vs.Names {
					if ident.Name == "_" {
						continue
					}
					c, ok := p.Info().Defs[ident].(*types.Const)
					if !ok || !types.Identical(c.Type(), t) {
						continue
					}
					out = append(out, member{Name: ident.Name, Value: c.Val()})
				}
			}
		}
	}
	return out
}

// distinct drops members whose value repeats an earlier one.
func distinct(members []member) []member {
	var out []member
	for _, m := range members {
		dup := false
		for _, seen := range out {
			if constant.Compare(seen.Value, token.EQL, m.Value) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}

// basicKind returns the underlying basic info of t, or 0 when t is not an
// integer or string type.
func basicKind(t types.Type) types.BasicInfo {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0
	}
	info := b.Info()
	switch {
	case info&types.IsInteger != 0:
		return info & (types.IsInteger | types.IsUnsigned)
	case info&types.IsString != 0:
		return types.IsString
	}
	return 0
}

// hasStringMethod reports whether t or *t has a String() string method.
func hasStringMethod(t types.Type) bool {
	for _, typ := range []types.Type{t, types.NewPointer(t)} {
		ms := types.NewMethodSet(typ)
		for i := 0; i < ms.Len(); i++ {
			fn, ok := ms.At(i).Obj().(*types.Func)
			if !ok || fn.Name() != "String" {
				continue
			}
			sig := fn.Type().(*types.Signature)
			if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
				continue
			}
			if b, ok := sig.Results().At(0).Type().(*types.Basic); ok && b.Kind() == types.String {
				return true
			}
		}
	}
	return false
}
