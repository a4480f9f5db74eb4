// Package enumstr is the reference generator bundled with stagegen.
//
// It runs two filter groups over a Go package:
//
//	enum      //stagegen:enum      String() and <Type>Values()   (immediate)
//	          //stagegen:describe  Describe() for fmt.Stringers  (deferred)
//	validate  //stagegen:validate  Valid() using <Type>Values()  (immediate)
//
// Describe sees String methods generated in the same group, and Valid sees
// the Values functions generated by the enum group.
package enumstr

import (
	"fmt"
	"go/types"
	"iter"
	"strings"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/gomodel"
	"github.com/teranos/stagegen/internal/util"
	"github.com/teranos/stagegen/model"
	"github.com/teranos/stagegen/pass"
)

// Name identifies the generator in logs, metrics and file headers.
const Name = "enumstr"

// Directive names.
const (
	DirectiveEnum     = "enum"
	DirectiveDescribe = "describe"
	DirectiveValidate = "validate"
)

type kind string

const (
	kindString   kind = "string"
	kindDescribe kind = "describe"
	kindValid    kind = "valid"
)

// target is the candidate handed to Generate: a declaration, the package
// version it was selected from and what to generate for it.
type target struct {
	decl *gomodel.Decl
	pkg  *gomodel.Package
	kind kind
}

// Name is "<Type>_<kind>", which the namer turns into "<type>_<kind>.gen.go".
func (t *target) Name() string { return t.decl.Name() + "_" + string(t.kind) }

// Stats counts what one pass generated. It is the pass context data unless
// the caller supplies its own.
type Stats struct {
	Enums     []string
	Described []string
	Validated []string
	Skipped   []string
}

// Generator implements pass.Generator.
type Generator struct{}

var (
	_ pass.Generator          = (*Generator)(nil)
	_ pass.ReceiverFactory    = (*Generator)(nil)
	_ pass.ContextInitializer = (*Generator)(nil)
)

// New creates the generator.
func New() *Generator { return &Generator{} }

func (g *Generator) Name() string { return Name }

// NewReceiver ends passes over packages without any directive early.
func (g *Generator) NewReceiver() pass.Receiver { return &gomodel.DirectiveReceiver{} }

func (g *Generator) InitContext(pc *pass.Context) error {
	if pc.Data() == nil {
		pc.SetData(&Stats{})
	}
	return nil
}

func (g *Generator) Filters(pc *pass.Context) *pass.FilterContainer {
	c := pass.NewFilterContainer()

	enum := gomodel.NewDirectiveFilter(DirectiveEnum, false)
	enum.Match = func(p *gomodel.Package, d *gomodel.Decl) bool {
		return isEnum(p, d, pc)
	}
	describe := gomodel.NewDirectiveFilter(DirectiveDescribe, true)
	describe.Match = func(p *gomodel.Package, d *gomodel.Decl) bool {
		tn, ok := d.Obj.(*types.TypeName)
		if !ok || !hasStringMethod(tn.Type()) {
			skip(pc, d, "describe needs a String() string method")
			return false
		}
		return true
	}
	validate := gomodel.NewDirectiveFilter(DirectiveValidate, false)
	validate.Match = func(p *gomodel.Package, d *gomodel.Decl) bool {
		if _, ok := p.Lookup(valuesFunc(d.Name())).(*types.Func); !ok {
			skip(pc, d, "validate needs the type to be an enum")
			return false
		}
		return true
	}

	// Registration on a fresh container only fails on programming errors
	if _, err := c.RegisterNamedFilterGroup("enum", targets(enum, kindString), targets(describe, kindDescribe)); err != nil {
		panic(err)
	}
	if _, err := c.RegisterNamedFilterGroup("validate", targets(validate, kindValid)); err != nil {
		panic(err)
	}
	return c
}

func (g *Generator) Generate(pc *pass.Context, c pass.Candidate) ([]byte, error) {
	t, ok := c.(*target)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "unexpected candidate %T", c)
	}
	tn, ok := t.decl.Obj.(*types.TypeName)
	if !ok {
		return nil, errors.Newf("%s is not a type", t.decl.Name())
	}

	var body string
	switch t.kind {
	case kindString:
		// A hand-written String method wins; only Values is generated then
		body = stringBody(tn, collectMembers(t.pkg, tn.Type()), !hasStringMethod(tn.Type()))
	case kindDescribe:
		body = describeBody(tn)
	case kindValid:
		body = validBody(tn)
	default:
		return nil, errors.AssertionFailedf("unknown kind %q", t.kind)
	}

	src, err := gomodel.Format(t.name(), []byte(gomodel.Header(Name, t.pkg.Name())+body))
	if err != nil {
		return nil, err
	}
	record(pc, t)
	return src, nil
}

func (t *target) name() string {
	return util.ToSnakeCase(t.Name()) + ".gen.go"
}

// targets wraps a directive filter so each declaration carries its kind.
func targets(f *gomodel.DirectiveFilter, k kind) pass.Filter {
	return pass.NewFilter(f.Name(), f.NeedsGenerated(), func(pc *pass.Context, snap model.Snapshot) iter.Seq2[pass.Candidate, error] {
		return func(yield func(pass.Candidate, error) bool) {
			p, err := gomodel.AsPackage(snap)
			if err != nil {
				yield(nil, err)
				return
			}
			for c, err := range f.Candidates(pc, snap) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(&target{decl: c.(*gomodel.Decl), pkg: p, kind: k}, nil) {
					return
				}
			}
		}
	})
}

func isEnum(p *gomodel.Package, d *gomodel.Decl, pc *pass.Context) bool {
	tn, ok := d.Obj.(*types.TypeName)
	if !ok {
		skip(pc, d, "enum applies to type declarations")
		return false
	}
	if basicKind(tn.Type()) == 0 {
		skip(pc, d, "enum needs an integer or string underlying type")
		return false
	}
	if len(collectMembers(p, tn.Type())) == 0 {
		skip(pc, d, "enum has no constants")
		return false
	}
	return true
}

func skip(pc *pass.Context, d *gomodel.Decl, reason string) {
	pc.Logger().Debugw("Skipping declaration", "decl", d.Name(), "reason", reason)
	if s, ok := pc.Data().(*Stats); ok {
		s.Skipped = append(s.Skipped, d.Name())
	}
}

func record(pc *pass.Context, t *target) {
	s, ok := pc.Data().(*Stats)
	if !ok {
		return
	}
	switch t.kind {
	case kindString:
		s.Enums = append(s.Enums, t.decl.Name())
	case kindDescribe:
		s.Described = append(s.Described, t.decl.Name())
	case kindValid:
		s.Validated = append(s.Validated, t.decl.Name())
	}
}

func valuesFunc(typeName string) string {
	return typeName + "Values"
}

func stringBody(tn *types.TypeName, members []member, withString bool) string {
	typ := tn.Name()
	var b strings.Builder
	if withString {
		writeString(&b, tn, members)
	}
	fmt.Fprintf(&b, "\n// %s returns every declared %s in declaration order.\n", valuesFunc(typ), typ)
	fmt.Fprintf(&b, "func %s() []%s {\n\treturn []%s{", valuesFunc(typ), typ, typ)
	for i, m := range members {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.Name)
	}
	b.WriteString("}\n}\n")
	return b.String()
}

func writeString(b *strings.Builder, tn *types.TypeName, members []member) {
	typ := tn.Name()
	recv := util.ReceiverName(typ)
	info := basicKind(tn.Type())

	fmt.Fprintf(b, "\n// String returns the name of the %s constant.\n", typ)
	fmt.Fprintf(b, "func (%s %s) String() string {\n", recv, typ)
	fmt.Fprintf(b, "\tswitch %s {\n", recv)
	for _, m := range distinct(members) {
		fmt.Fprintf(b, "\tcase %s:\n\t\treturn %q\n", m.Name, m.Name)
	}
	b.WriteString("\t}\n")
	switch {
	case info&types.IsString != 0:
		fmt.Fprintf(b, "\treturn %q + string(%s) + \")\"\n", typ+"(", recv)
	case info&types.IsUnsigned != 0:
		fmt.Fprintf(b, "\treturn %q + strconv.FormatUint(uint64(%s), 10) + \")\"\n", typ+"(", recv)
	default:
		fmt.Fprintf(b, "\treturn %q + strconv.FormatInt(int64(%s), 10) + \")\"\n", typ+"(", recv)
	}
	b.WriteString("}\n")
}

func describeBody(tn *types.TypeName) string {
	typ := tn.Name()
	recv := util.ReceiverName(typ)
	return fmt.Sprintf("\n// Describe returns %s qualified by its type name.\nfunc (%s %s) Describe() string {\n\treturn %q + %s.String()\n}\n",
		recv, recv, typ, typ+".", recv)
}

func validBody(tn *types.TypeName) string {
	typ := tn.Name()
	recv := util.ReceiverName(typ)
	return fmt.Sprintf("\n// Valid reports whether %s is a declared %s.\nfunc (%s %s) Valid() bool {\n\tfor _, known := range %s() {\n\t\tif known == %s {\n\t\t\treturn true\n\t\t}\n\t}\n\treturn false\n}\n",
		recv, typ, recv, typ, valuesFunc(typ), recv)
}
