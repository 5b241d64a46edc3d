package types

import (
	"strings"

	"github.com/nikandfor/errors"
)

// ErrBadDescriptor is returned for malformed descriptors and signatures.
var ErrBadDescriptor = errors.New("bad descriptor")

// DescT returns the type of a field descriptor ("I", "[J", "Ljava/lang/String;").
// Repeated calls return the same instance.
func (c *Cache) DescT(desc string) (*T, error) {
	c.mu.Lock()
	t, ok := c.descs[desc]
	c.mu.Unlock()
	if ok {
		return t, nil
	}

	p := sigParser{c: c, s: desc}
	t, err := p.fieldType(false)
	if err == nil && p.pos != len(desc) {
		err = errors.Wrap(ErrBadDescriptor, "trailing data in %q", desc)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.descs[desc] = t
	c.mu.Unlock()
	return t, nil
}

// MustDescT is DescT for descriptors known to be valid.
func (c *Cache) MustDescT(desc string) *T {
	t, err := c.DescT(desc)
	if err != nil {
		panic(err)
	}
	return t
}

// RefT returns the type named by a class operand: an internal or dotted
// class name ("java/lang/String"), or an array descriptor ("[I").
func (c *Cache) RefT(s string) (*T, error) {
	switch {
	case s == "":
		return nil, errors.Wrap(ErrBadDescriptor, "empty class operand")
	case s[0] == '[' || strings.HasSuffix(s, ";"):
		return c.DescT(s)
	}
	return c.T(s), nil
}

// MethodSig is a parsed method descriptor or generic method signature.
type MethodSig struct {
	TypeParams []*T
	Params     []*T
	Return     *T
	Throws     []*T
}

// MethodDesc parses a method descriptor "(IJ)V" or, when generic is true, a
// method signature with type parameters and throws clauses.
func (c *Cache) MethodDesc(desc string, generic bool) (*MethodSig, error) {
	p := sigParser{c: c, s: desc}
	ms := &MethodSig{}
	var err error
	if generic && p.peek() == '<' {
		if ms.TypeParams, err = p.typeParams(); err != nil {
			return nil, err
		}
	}
	if !p.eat('(') {
		return nil, p.errorf("expected (")
	}
	for p.peek() != ')' {
		t, err := p.fieldType(generic)
		if err != nil {
			return nil, err
		}
		ms.Params = append(ms.Params, t)
	}
	p.pos++
	if p.peek() == 'V' {
		p.pos++
		ms.Return = c.Void()
	} else if ms.Return, err = p.fieldType(generic); err != nil {
		return nil, err
	}
	for generic && p.eat('^') {
		t, err := p.fieldType(true)
		if err != nil {
			return nil, err
		}
		ms.Throws = append(ms.Throws, t)
	}
	if p.pos != len(desc) {
		return nil, p.errorf("trailing data")
	}
	return ms, nil
}

// SigT parses a generic field signature.
func (c *Cache) SigT(sig string) (*T, error) {
	p := sigParser{c: c, s: sig}
	t, err := p.fieldType(true)
	if err == nil && p.pos != len(sig) {
		err = p.errorf("trailing data")
	}
	return t, err
}

// ClassSig is a parsed generic class signature.
type ClassSig struct {
	TypeParams []*T
	Super      *T
	Interfaces []*T
}

// ClassSignature parses a generic class signature.
func (c *Cache) ClassSignature(sig string) (*ClassSig, error) {
	p := sigParser{c: c, s: sig}
	cs := &ClassSig{}
	var err error
	if p.peek() == '<' {
		if cs.TypeParams, err = p.typeParams(); err != nil {
			return nil, err
		}
	}
	if cs.Super, err = p.fieldType(true); err != nil {
		return nil, err
	}
	for p.pos < len(sig) {
		t, err := p.fieldType(true)
		if err != nil {
			return nil, err
		}
		cs.Interfaces = append(cs.Interfaces, t)
	}
	return cs, nil
}

type sigParser struct {
	c   *Cache
	s   string
	pos int
}

func (p *sigParser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *sigParser) eat(b byte) bool {
	if p.peek() == b {
		p.pos++
		return true
	}
	return false
}

func (p *sigParser) errorf(msg string) error {
	return errors.Wrap(ErrBadDescriptor, "%s at %d in %q", msg, p.pos, p.s)
}

func (p *sigParser) fieldType(generic bool) (*T, error) {
	switch ch := p.peek(); ch {
	case '[':
		dims := 0
		for p.eat('[') {
			dims++
		}
		elem, err := p.fieldType(generic)
		if err != nil {
			return nil, err
		}
		return p.c.ArrayT(elem, dims), nil
	case 'L':
		p.pos++
		return p.classType(generic)
	case 'T':
		if !generic {
			return nil, p.errorf("type variable in descriptor")
		}
		p.pos++
		end := strings.IndexByte(p.s[p.pos:], ';')
		if end < 0 {
			return nil, p.errorf("unterminated type variable")
		}
		name := p.s[p.pos : p.pos+end]
		p.pos += end + 1
		return p.c.VarT(name, nil, nil), nil
	case 0:
		return nil, p.errorf("unexpected end")
	default:
		k := kindByDesc(ch)
		if k == 0 || k == Void {
			return nil, p.errorf("unknown type " + string(ch))
		}
		p.pos++
		return p.c.Prim(k), nil
	}
}

// classType parses the rest of an object type after 'L', including type
// arguments and inner class suffixes.
func (p *sigParser) classType(generic bool) (*T, error) {
	var (
		name strings.Builder
		cur  *T
	)
	for {
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] != ';' && p.s[p.pos] != '<' && p.s[p.pos] != '.' {
			p.pos++
		}
		if p.pos >= len(p.s) {
			return nil, p.errorf("unterminated class type")
		}
		if name.Len() > 0 {
			name.WriteByte('$')
		}
		name.WriteString(strings.ReplaceAll(p.s[start:p.pos], "/", "."))
		cur = p.c.T(name.String())

		if p.peek() == '<' {
			if !generic {
				return nil, p.errorf("type arguments in descriptor")
			}
			args, err := p.typeArgs()
			if err != nil {
				return nil, err
			}
			cur = p.c.ParamT(cur, args)
		}
		if p.eat('.') {
			continue
		}
		if !p.eat(';') {
			return nil, p.errorf("expected ;")
		}
		return cur, nil
	}
}

func (p *sigParser) typeArgs() ([]*T, error) {
	p.pos++ // '<'
	var args []*T
	for !p.eat('>') {
		switch p.peek() {
		case '*':
			p.pos++
			args = append(args, p.c.WildcardT(nil, false))
		case '+', '-':
			lower := p.peek() == '-'
			p.pos++
			b, err := p.fieldType(true)
			if err != nil {
				return nil, err
			}
			args = append(args, p.c.WildcardT(b, lower))
		case 0:
			return nil, p.errorf("unterminated type arguments")
		default:
			t, err := p.fieldType(true)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
	}
	return args, nil
}

// typeParams parses "<T:Ljava/lang/Object;U::Ljava/lang/Comparable<TU;>;>".
func (p *sigParser) typeParams() ([]*T, error) {
	p.pos++ // '<'
	var params []*T
	for !p.eat('>') {
		colon := strings.IndexByte(p.s[p.pos:], ':')
		if colon <= 0 {
			return nil, p.errorf("bad type parameter")
		}
		name := p.s[p.pos : p.pos+colon]
		p.pos += colon + 1

		var (
			super  *T
			ifaces []*T
			err    error
		)
		if c := p.peek(); c != ':' && c != '>' {
			if super, err = p.fieldType(true); err != nil {
				return nil, err
			}
		}
		for p.eat(':') {
			t, err := p.fieldType(true)
			if err != nil {
				return nil, err
			}
			ifaces = append(ifaces, t)
		}
		params = append(params, p.c.VarT(name, super, ifaces))
	}
	return params, nil
}
