package glow

import "github.com/danmuck/emberctl/internal/protocol/ber"

type Node struct {
	treeNode
	Contents *NodeContents
}

func NewNode(number int32) *Node {
	n := &Node{}
	n.initNumbered(n, number)
	return n
}

func NewQualifiedNode(path []int32) *Node {
	n := &Node{}
	n.initQualified(n, path)
	return n
}

func (n *Node) Kind() Kind { return KindNode }

// Identifier returns the identifier, or "" when unknown.
func (n *Node) Identifier() string {
	if n.Contents == nil {
		return ""
	}
	return deref(n.Contents.Identifier)
}

func (n *Node) address() *Node {
	if n.qualified {
		return NewQualifiedNode(n.path)
	}
	return NewNode(n.number)
}

func (n *Node) Minimal() Element { return n.address() }

func (n *Node) MinimalContent() Element {
	m := n.address()
	m.Contents = n.Contents
	return m
}

func (n *Node) ToQualified() Element {
	q := NewQualifiedNode(n.Path())
	q.Contents = n.Contents
	return q
}

func (n *Node) ToElement() Element {
	e := NewNode(n.number)
	e.Contents = n.Contents
	return e
}

func (n *Node) Update(other Element) (bool, error) {
	o, ok := other.(*Node)
	if !ok {
		return false, ErrKindMismatch
	}
	return updateContents(&n.Contents, o.Contents, (*NodeContents).merge), nil
}

func (n *Node) encode(w *ber.Writer) error {
	tag := appNode
	if n.qualified {
		tag = appQualifiedNode
	}
	var contents func(*ber.Writer) error
	if n.Contents != nil {
		contents = n.Contents.encode
	}
	return encodeElementBody(w, &n.treeNode, tag, contents, nil)
}

func decodeNode(r *ber.Reader, qualified bool) (*Node, error) {
	n := &Node{}
	n.self = n
	n.qualified = qualified
	err := decodeElement(r, &n.treeNode, "node", func(tag byte, r *ber.Reader) (err error) {
		if tag != ctx(fieldContents) {
			return FieldError{Element: "node", Tag: tag}
		}
		n.Contents, err = decodeNodeContents(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// encodeElementBody writes APPLICATION(tag) { address, contents, children, tail }.
func encodeElementBody(w *ber.Writer, t *treeNode, tag int, contents, tail func(*ber.Writer) error) error {
	w.StartSequence(app(tag))
	if err := t.encodeAddress(w); err != nil {
		return err
	}
	if contents != nil {
		if err := contents(w); err != nil {
			return err
		}
	}
	if err := t.encodeChildren(w); err != nil {
		return err
	}
	if tail != nil {
		if err := tail(w); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

// updateContents adopts a copy of src when dst is empty, and merges it
// otherwise.
func updateContents[T any](dst **T, src *T, merge func(*T, *T) bool) bool {
	if src == nil {
		return false
	}
	if *dst == nil {
		c := *src
		*dst = &c
		return true
	}
	return merge(*dst, src)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
