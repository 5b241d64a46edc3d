// Package listing reads canonical operation listings, the hand-off format
// between a bytecode adapter and the decompiler. A listing is a YAML (or
// JSON) document with one entry per class:
//
//	classes:
//	  - name: p.C
//	    super: java.lang.Object
//	    flags: [public]
//	    methods:
//	      - name: f
//	        desc: (I)I
//	        flags: [static]
//	        max_locals: 1
//	        code:
//	          - {pc: 0, op: load, type: I, reg: 0}
//	          - {pc: 1, op: return, type: I}
//
// Member references are written "Owner.name(desc)" for methods and
// "Owner.name:desc" for fields.
package listing

import (
	"io"
	"os"
	"strings"

	"github.com/nikandfor/errors"
	"gopkg.in/yaml.v3"

	"decaf/internal/decl"
	"decaf/internal/ir"
)

type (
	File struct {
		Classes []Class `yaml:"classes"`
	}

	Class struct {
		Name       string   `yaml:"name"`
		Super      string   `yaml:"super,omitempty"`
		Interfaces []string `yaml:"interfaces,omitempty"`
		Flags      []string `yaml:"flags,omitempty"`
		Signature  string   `yaml:"signature,omitempty"`
		Source     string   `yaml:"source,omitempty"`
		Enclosing  string   `yaml:"enclosing,omitempty"`

		Inner   []Inner  `yaml:"inner,omitempty"`
		Fields  []Field  `yaml:"fields,omitempty"`
		Methods []Method `yaml:"methods,omitempty"`
	}

	Inner struct {
		Inner string   `yaml:"inner"`
		Outer string   `yaml:"outer,omitempty"`
		Name  string   `yaml:"name,omitempty"`
		Flags []string `yaml:"flags,omitempty"`
	}

	Field struct {
		Name      string    `yaml:"name"`
		Desc      string    `yaml:"desc"`
		Signature string    `yaml:"signature,omitempty"`
		Flags     []string  `yaml:"flags,omitempty"`
		Value     yaml.Node `yaml:"value,omitempty"`
	}

	Method struct {
		Name      string   `yaml:"name"`
		Desc      string   `yaml:"desc"`
		Signature string   `yaml:"signature,omitempty"`
		Flags     []string `yaml:"flags,omitempty"`
		Throws    []string `yaml:"throws,omitempty"`

		MaxLocals int       `yaml:"max_locals,omitempty"`
		MaxStack  int       `yaml:"max_stack,omitempty"`
		Code      []Op      `yaml:"code,omitempty"`
		Handlers  []Handler `yaml:"handlers,omitempty"`
		Locals    []Local   `yaml:"locals,omitempty"`
	}

	Handler struct {
		Start   int    `yaml:"start"`
		End     int    `yaml:"end"`
		Handler int    `yaml:"handler"`
		Catch   string `yaml:"catch,omitempty"`
	}

	Local struct {
		Reg       int    `yaml:"reg"`
		Name      string `yaml:"name"`
		Desc      string `yaml:"desc"`
		Signature string `yaml:"signature,omitempty"`
		Start     int    `yaml:"start"`
		End       int    `yaml:"end"`
	}

	Op struct {
		PC   int    `yaml:"pc"`
		Line int    `yaml:"line,omitempty"`
		Op   string `yaml:"op"`
		Type string `yaml:"type,omitempty"`
		From string `yaml:"from,omitempty"`

		Reg   int       `yaml:"reg,omitempty"`
		Value yaml.Node `yaml:"value,omitempty"`
		Class string    `yaml:"class,omitempty"` // PUSH of a class literal

		Cond    string `yaml:"cond,omitempty"`
		Target  int    `yaml:"target,omitempty"`
		Cases   []Case `yaml:"cases,omitempty"`
		Default int    `yaml:"default,omitempty"`

		Ref     string `yaml:"ref,omitempty"`
		Static  bool   `yaml:"static,omitempty"`
		Invoke  string `yaml:"invoke,omitempty"`
		Dims    int    `yaml:"dims,omitempty"`
		Enter   bool   `yaml:"enter,omitempty"`
		Greater bool   `yaml:"greater,omitempty"`
	}

	Case struct {
		Key    int `yaml:"key"`
		Target int `yaml:"target"`
	}
)

var flagNames = map[string]ir.Flags{
	"public":       ir.AccPublic,
	"private":      ir.AccPrivate,
	"protected":    ir.AccProtected,
	"static":       ir.AccStatic,
	"final":        ir.AccFinal,
	"synchronized": ir.AccSynchronized,
	"volatile":     ir.AccVolatile,
	"bridge":       ir.AccBridge,
	"transient":    ir.AccTransient,
	"varargs":      ir.AccVarargs,
	"native":       ir.AccNative,
	"interface":    ir.AccInterface,
	"abstract":     ir.AccAbstract,
	"strict":       ir.AccStrict,
	"synthetic":    ir.AccSynthetic,
	"annotation":   ir.AccAnnotation,
	"enum":         ir.AccEnum,
}

// ReadFile reads the listing at path.
func ReadFile(path string) ([]*ir.Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open listing")
	}
	defer f.Close()

	cs, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}
	return cs, nil
}

// Read decodes a listing. Unknown keys, operation codes, conditions and
// flags are errors.
func Read(r io.Reader) ([]*ir.Class, error) {
	var f File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode")
	}

	out := make([]*ir.Class, 0, len(f.Classes))
	for i := range f.Classes {
		c, err := f.Classes[i].class()
		if err != nil {
			return nil, errors.Wrap(err, "class %v", f.Classes[i].Name)
		}
		out = append(out, c)
	}
	return out, nil
}

// Populate adds classes to du in order. A class that cannot be added is
// skipped and the rest are still loaded; the returned error names the first
// failure and the number of skipped classes.
func Populate(du *decl.DU, classes []*ir.Class) error {
	var first error
	skipped := 0
	for _, c := range classes {
		if _, err := du.Add(c); err != nil {
			if first == nil {
				first = err
			}
			skipped++
		}
	}
	if first != nil {
		return errors.Wrap(first, "%d of %d classes skipped", skipped, len(classes))
	}
	return nil
}

func (c *Class) class() (_ *ir.Class, err error) {
	if c.Name == "" {
		return nil, errors.New("missing name")
	}
	out := &ir.Class{
		Name:            c.Name,
		Super:           c.Super,
		Interfaces:      c.Interfaces,
		Signature:       c.Signature,
		SourceFile:      c.Source,
		EnclosingMethod: c.Enclosing,
	}
	if out.Flags, err = flags(c.Flags); err != nil {
		return nil, err
	}

	for _, in := range c.Inner {
		ic := ir.InnerClass{Inner: in.Inner, Outer: in.Outer, Name: in.Name}
		if ic.Flags, err = flags(in.Flags); err != nil {
			return nil, errors.Wrap(err, "inner %v", in.Inner)
		}
		out.InnerClasses = append(out.InnerClasses, ic)
	}

	for i := range c.Fields {
		f := &c.Fields[i]
		fd := &ir.Field{Name: f.Name, Desc: f.Desc, Signature: f.Signature}
		if fd.Flags, err = flags(f.Flags); err != nil {
			return nil, errors.Wrap(err, "field %v", f.Name)
		}
		if fd.Value, err = value(&f.Value); err != nil {
			return nil, errors.Wrap(err, "field %v", f.Name)
		}
		out.Fields = append(out.Fields, fd)
	}

	for i := range c.Methods {
		m, err := c.Methods[i].method(c.Name)
		if err != nil {
			return nil, errors.Wrap(err, "method %v%v", c.Methods[i].Name, c.Methods[i].Desc)
		}
		out.Methods = append(out.Methods, m)
	}

	return out, nil
}

func (m *Method) method(owner string) (_ *ir.Method, err error) {
	out := &ir.Method{
		Owner:     owner,
		Name:      m.Name,
		Desc:      m.Desc,
		Signature: m.Signature,
		Throws:    m.Throws,
		MaxLocals: m.MaxLocals,
		MaxStack:  m.MaxStack,
	}
	if out.Flags, err = flags(m.Flags); err != nil {
		return nil, err
	}

	for _, h := range m.Handlers {
		out.Handlers = append(out.Handlers, ir.Handler{Start: h.Start, End: h.End, Handler: h.Handler, Catch: h.Catch})
	}
	for _, l := range m.Locals {
		out.Locals = append(out.Locals, ir.LocalVar{Reg: l.Reg, Name: l.Name, Desc: l.Desc, Signature: l.Signature, Start: l.Start, End: l.End})
	}

	for i := range m.Code {
		op, err := m.Code[i].op()
		if err != nil {
			return nil, errors.Wrap(err, "pc %d", m.Code[i].PC)
		}
		out.Ops = append(out.Ops, op)
	}

	return out, nil
}

func (o *Op) op() (op ir.Op, err error) {
	code, ok := ir.ParseCode(o.Op)
	if !ok {
		return op, errors.New("unknown op %q", o.Op)
	}

	op = ir.Op{
		PC:      o.PC,
		Line:    o.Line,
		Code:    code,
		Type:    o.Type,
		From:    o.From,
		Reg:     o.Reg,
		Target:  o.Target,
		Default: o.Default,
		Static:  o.Static,
		Dims:    o.Dims,
		Enter:   o.Enter,
		Greater: o.Greater,
	}

	if o.Cond != "" {
		if op.Cond, ok = ir.ParseCond(o.Cond); !ok {
			return op, errors.New("unknown condition %q", o.Cond)
		}
	}
	if o.Invoke != "" {
		if op.Invoke, ok = ir.ParseInvokeKind(o.Invoke); !ok {
			return op, errors.New("unknown invoke kind %q", o.Invoke)
		}
	}
	if o.Ref != "" {
		if op.Ref, err = ParseRef(o.Ref); err != nil {
			return op, err
		}
	}
	for _, c := range o.Cases {
		op.Keys = append(op.Keys, c.Key)
		op.Targets = append(op.Targets, c.Target)
	}

	if o.Class != "" {
		op.Value = ir.ClassConst(o.Class)
	} else if op.Value, err = value(&o.Value); err != nil {
		return op, err
	}

	return op, nil
}

// ParseRef parses "Owner.name(desc)" or "Owner.name:desc".
func ParseRef(s string) (*ir.Ref, error) {
	sep := strings.IndexByte(s, '(')
	if sep < 0 {
		sep = strings.LastIndexByte(s, ':')
	}
	if sep <= 0 {
		return nil, errors.New("bad member reference %q", s)
	}

	dot := strings.LastIndexByte(s[:sep], '.')
	if dot <= 0 || dot+1 == sep {
		return nil, errors.New("bad member reference %q", s)
	}

	desc := s[sep:]
	if desc[0] == ':' {
		desc = desc[1:]
	}
	if desc == "" {
		return nil, errors.New("bad member reference %q", s)
	}

	return &ir.Ref{Owner: s[:dot], Name: s[dot+1 : sep], Desc: desc}, nil
}

func flags(names []string) (ir.Flags, error) {
	var f ir.Flags
	for _, n := range names {
		x, ok := flagNames[strings.ToLower(n)]
		if !ok {
			return 0, errors.New("unknown flag %q", n)
		}
		f |= x
	}
	return f, nil
}

// value converts a scalar node to the constant representation of ir:
// int64, float64, bool, string or nil.
func value(n *yaml.Node) (any, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, errors.New("line %d: value is not a scalar", n.Line)
	}

	var err error
	switch n.Tag {
	case "!!null":
		return nil, nil
	case "!!int":
		var v int64
		err = n.Decode(&v)
		return v, err
	case "!!float":
		var v float64
		err = n.Decode(&v)
		return v, err
	case "!!bool":
		var v bool
		err = n.Decode(&v)
		return v, err
	}
	return n.Value, nil
}
