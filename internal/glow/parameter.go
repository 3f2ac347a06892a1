package glow

import "github.com/danmuck/emberctl/internal/protocol/ber"

type Parameter struct {
	treeNode
	Contents *ParameterContents
}

func NewParameter(number int32) *Parameter {
	p := &Parameter{}
	p.initNumbered(p, number)
	return p
}

func NewQualifiedParameter(path []int32) *Parameter {
	p := &Parameter{}
	p.initQualified(p, path)
	return p
}

func (p *Parameter) Kind() Kind { return KindParameter }

func (p *Parameter) Identifier() string {
	if p.Contents == nil {
		return ""
	}
	return deref(p.Contents.Identifier)
}

// Value returns the current value, unset when unknown.
func (p *Parameter) Value() ber.Value {
	if p.Contents == nil {
		return ber.Value{}
	}
	return p.Contents.Value
}

// SetValue stores v locally. The parameter must carry contents.
func (p *Parameter) SetValue(v ber.Value) error {
	if p.Contents == nil {
		return ErrMissingContents
	}
	p.Contents.Value = v
	return nil
}

// SetValueRequest builds the message asking a provider to store v.
func (p *Parameter) SetValueRequest(v ber.Value) *Root {
	return p.GetTreeBranch(nil, func(m Element) {
		m.(*Parameter).Contents = &ParameterContents{Value: v}
	})
}

func (p *Parameter) address() *Parameter {
	if p.qualified {
		return NewQualifiedParameter(p.path)
	}
	return NewParameter(p.number)
}

func (p *Parameter) Minimal() Element { return p.address() }

func (p *Parameter) MinimalContent() Element {
	m := p.address()
	m.Contents = p.Contents
	return m
}

func (p *Parameter) ToQualified() Element {
	q := NewQualifiedParameter(p.Path())
	q.Contents = p.Contents
	return q
}

func (p *Parameter) ToElement() Element {
	e := NewParameter(p.number)
	e.Contents = p.Contents
	return e
}

func (p *Parameter) Update(other Element) (bool, error) {
	o, ok := other.(*Parameter)
	if !ok {
		return false, ErrKindMismatch
	}
	return updateContents(&p.Contents, o.Contents, (*ParameterContents).merge), nil
}

func (p *Parameter) encode(w *ber.Writer) error {
	tag := appParameter
	if p.qualified {
		tag = appQualifiedParameter
	}
	var contents func(*ber.Writer) error
	if p.Contents != nil {
		contents = p.Contents.encode
	}
	return encodeElementBody(w, &p.treeNode, tag, contents, nil)
}

func decodeParameter(r *ber.Reader, qualified bool) (*Parameter, error) {
	p := &Parameter{}
	p.self = p
	p.qualified = qualified
	err := decodeElement(r, &p.treeNode, "parameter", func(tag byte, r *ber.Reader) (err error) {
		if tag != ctx(fieldContents) {
			return FieldError{Element: "parameter", Tag: tag}
		}
		p.Contents, err = decodeParameterContents(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
