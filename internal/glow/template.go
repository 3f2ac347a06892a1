package glow

import "github.com/danmuck/emberctl/internal/protocol/ber"

// Template carries a reusable element description referenced by
// templateReference fields.
type Template struct {
	treeNode
	Element     Element
	Description *string
}

func NewTemplate(number int32) *Template {
	t := &Template{}
	t.initNumbered(t, number)
	return t
}

func NewQualifiedTemplate(path []int32) *Template {
	t := &Template{}
	t.initQualified(t, path)
	return t
}

func (t *Template) Kind() Kind { return KindTemplate }

// SetElement installs the templated element under this template.
func (t *Template) SetElement(e Element) {
	t.Element = e
	if e != nil {
		e.tree().parent = t
	}
}

func (t *Template) address() *Template {
	if t.qualified {
		return NewQualifiedTemplate(t.path)
	}
	return NewTemplate(t.number)
}

func (t *Template) Minimal() Element { return t.address() }

func (t *Template) MinimalContent() Element {
	m := t.address()
	m.Element = t.Element
	m.Description = t.Description
	return m
}

func (t *Template) ToQualified() Element {
	q := NewQualifiedTemplate(t.Path())
	q.Element = t.Element
	q.Description = t.Description
	return q
}

func (t *Template) ToElement() Element {
	e := NewTemplate(t.number)
	e.Element = t.Element
	e.Description = t.Description
	return e
}

func (t *Template) Update(other Element) (bool, error) {
	o, ok := other.(*Template)
	if !ok {
		return false, ErrKindMismatch
	}
	m := mergePtr(&t.Description, o.Description)
	if o.Element != nil && o.Element != t.Element {
		t.SetElement(o.Element)
		m = true
	}
	return m, nil
}

// encode writes number, element and description. Field 2 is the
// description, so templates carry no children container.
func (t *Template) encode(w *ber.Writer) error {
	tag := appTemplate
	if t.qualified {
		tag = appQualifiedTemplate
	}
	w.StartSequence(app(tag))
	if err := t.encodeAddress(w); err != nil {
		return err
	}
	if t.Element != nil {
		w.StartSequence(ctx(templateElement))
		if err := t.Element.encode(w); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	if t.Description != nil {
		w.StartSequence(ctx(templateDescription))
		w.WriteString(*t.Description)
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

func decodeTemplate(r *ber.Reader, qualified bool) (*Template, error) {
	t := &Template{}
	t.self = t
	t.qualified = qualified
	err := decodeFields(r, &t.treeNode, "template", false, func(tag byte, r *ber.Reader) (err error) {
		switch tag {
		case ctx(templateElement):
			var e Element
			if e, err = decodeChild(r); err == nil {
				t.SetElement(e)
			}
		case ctx(templateDescription):
			t.Description, err = readString(r)
		default:
			err = FieldError{Element: "template", Tag: tag}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
