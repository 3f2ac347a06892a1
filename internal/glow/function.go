package glow

import "github.com/danmuck/emberctl/internal/protocol/ber"

type Function struct {
	treeNode
	Contents *FunctionContents
}

func NewFunction(number int32) *Function {
	f := &Function{}
	f.initNumbered(f, number)
	return f
}

func NewQualifiedFunction(path []int32) *Function {
	f := &Function{}
	f.initQualified(f, path)
	return f
}

func (f *Function) Kind() Kind { return KindFunction }

func (f *Function) Identifier() string {
	if f.Contents == nil {
		return ""
	}
	return deref(f.Contents.Identifier)
}

// Invoke builds the message calling this function with args under id.
func (f *Function) Invoke(id int32, args []ber.Value) *Root {
	cmd := NewCommand(CommandInvoke)
	cmd.Invocation = &Invocation{ID: Ptr(id), Arguments: args}
	return f.GetCommand(cmd)
}

func (f *Function) address() *Function {
	if f.qualified {
		return NewQualifiedFunction(f.path)
	}
	return NewFunction(f.number)
}

func (f *Function) Minimal() Element { return f.address() }

func (f *Function) MinimalContent() Element {
	m := f.address()
	m.Contents = f.Contents
	return m
}

func (f *Function) ToQualified() Element {
	q := NewQualifiedFunction(f.Path())
	q.Contents = f.Contents
	return q
}

func (f *Function) ToElement() Element {
	e := NewFunction(f.number)
	e.Contents = f.Contents
	return e
}

func (f *Function) Update(other Element) (bool, error) {
	o, ok := other.(*Function)
	if !ok {
		return false, ErrKindMismatch
	}
	return updateContents(&f.Contents, o.Contents, (*FunctionContents).merge), nil
}

func (f *Function) encode(w *ber.Writer) error {
	tag := appFunction
	if f.qualified {
		tag = appQualifiedFunction
	}
	var contents func(*ber.Writer) error
	if f.Contents != nil {
		contents = f.Contents.encode
	}
	return encodeElementBody(w, &f.treeNode, tag, contents, nil)
}

func decodeFunction(r *ber.Reader, qualified bool) (*Function, error) {
	f := &Function{}
	f.self = f
	f.qualified = qualified
	err := decodeElement(r, &f.treeNode, "function", func(tag byte, r *ber.Reader) (err error) {
		if tag != ctx(fieldContents) {
			return FieldError{Element: "function", Tag: tag}
		}
		f.Contents, err = decodeFunctionContents(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
