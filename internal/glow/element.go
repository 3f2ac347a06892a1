package glow

import (
	"strconv"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Element is one item of a Glow tree. The set of implementations is closed:
// *Root, *Node, *Parameter, *Matrix, *Function, *Template and *Command.
type Element interface {
	Kind() Kind
	Number() int32
	HasNumber() bool
	IsQualified() bool
	Path() []int32
	PathString() string
	Parent() Element
	Children() []Element
	Child(number int32) Element
	AddChild(child Element)
	RemoveChild(child Element) bool
	GetElementByPath(path []int32) Element
	GetTreeBranch(child Element, modifier func(Element)) *Root

	// ToQualified re-addresses the element by full path. Contents are shared.
	ToQualified() Element
	// ToElement re-addresses a qualified element by its last path segment.
	ToElement() Element
	// Minimal copies addressing only.
	Minimal() Element
	// MinimalContent copies addressing and contents, without children.
	MinimalContent() Element
	// Update merges set fields of other into the receiver.
	Update(other Element) (bool, error)

	tree() *treeNode
	encode(w *ber.Writer) error
}

// Callback observes changes of a subscribed element.
type Callback func(Element)

// SubscriptionID identifies one registered callback on one element.
type SubscriptionID uint64

// treeNode carries addressing, children and subscribers for every variant.
// self points back at the embedding element.
type treeNode struct {
	self      Element
	number    int32
	hasNumber bool
	path      []int32
	qualified bool
	parent    Element
	children  []Element
	index     map[string]int
	subs      map[SubscriptionID]Callback
	nextSub   SubscriptionID
}

func (t *treeNode) tree() *treeNode { return t }

func (t *treeNode) initNumbered(self Element, number int32) {
	t.self = self
	t.number = number
	t.hasNumber = true
}

func (t *treeNode) initQualified(self Element, path []int32) {
	t.self = self
	t.path = clonePath(path)
	t.qualified = true
	if len(path) > 0 {
		t.number = path[len(path)-1]
		t.hasNumber = true
	}
}

func (t *treeNode) Number() int32     { return t.number }
func (t *treeNode) HasNumber() bool   { return t.hasNumber }
func (t *treeNode) IsQualified() bool { return t.qualified }
func (t *treeNode) Parent() Element   { return t.parent }

func (t *treeNode) isRoot() bool {
	return t.self != nil && t.self.Kind() == KindRoot
}

// Path returns the full numeric path. Qualified elements carry it explicitly,
// numbered elements derive it from their ancestors.
func (t *treeNode) Path() []int32 {
	if t.qualified {
		return clonePath(t.path)
	}
	if t.isRoot() {
		return []int32{}
	}
	var prefix []int32
	if t.parent != nil {
		prefix = t.parent.Path()
	}
	return append(prefix, t.number)
}

func (t *treeNode) PathString() string {
	return FormatPath(t.Path())
}

func (t *treeNode) Children() []Element {
	out := make([]Element, len(t.children))
	copy(out, t.children)
	return out
}

func (t *treeNode) HasChildren() bool {
	return len(t.children) > 0
}

// childKey keys elements by number, qualified children of the root by path,
// and commands in their own space.
func (t *treeNode) childKey(child Element) string {
	if child.Kind() == KindCommand {
		return "c" + strconv.FormatInt(int64(child.Number()), 10)
	}
	ct := child.tree()
	if ct.qualified && t.isRoot() {
		return FormatPath(ct.path)
	}
	return strconv.FormatInt(int64(child.Number()), 10)
}

// AddChild attaches child, replacing an existing child with the same key in
// place.
func (t *treeNode) AddChild(child Element) {
	if child == nil {
		return
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	child.tree().parent = t.self
	key := t.childKey(child)
	if i, ok := t.index[key]; ok {
		if old := t.children[i]; old != child {
			old.tree().parent = nil
		}
		t.children[i] = child
		return
	}
	t.index[key] = len(t.children)
	t.children = append(t.children, child)
}

func (t *treeNode) RemoveChild(child Element) bool {
	if child == nil || t.index == nil {
		return false
	}
	key := t.childKey(child)
	i, ok := t.index[key]
	if !ok {
		return false
	}
	t.children = append(t.children[:i], t.children[i+1:]...)
	delete(t.index, key)
	for k, j := range t.index {
		if j > i {
			t.index[k] = j - 1
		}
	}
	child.tree().parent = nil
	return true
}

// Child returns the non-command child with the given number.
func (t *treeNode) Child(number int32) Element {
	if t.index == nil {
		return nil
	}
	if i, ok := t.index[strconv.FormatInt(int64(number), 10)]; ok {
		return t.children[i]
	}
	return nil
}

func (t *treeNode) qualifiedChild(path []int32) Element {
	if t.index == nil {
		return nil
	}
	if i, ok := t.index[FormatPath(path)]; ok {
		if c := t.children[i]; c.IsQualified() {
			return c
		}
	}
	return nil
}

// Commands returns the command children, in arrival order.
func (t *treeNode) Commands() []*Command {
	var out []*Command
	for _, c := range t.children {
		if cmd, ok := c.(*Command); ok {
			out = append(out, cmd)
		}
	}
	return out
}

// GetElementByPath resolves a descendant path, or the element itself. It
// returns nil for paths outside this subtree, for commands on the way and
// for qualified children whose path disagrees with the walk.
func (t *treeNode) GetElementByPath(path []int32) Element {
	if path == nil {
		return nil
	}
	if t.isRoot() {
		for k := len(path); k > 0; k-- {
			q := t.qualifiedChild(path[:k])
			if q == nil {
				continue
			}
			if k == len(path) {
				return q
			}
			return q.GetElementByPath(path)
		}
	}
	mine := t.Path()
	if !hasPathPrefix(path, mine) {
		return nil
	}
	var cur Element = t.self
	for i := len(mine); i < len(path); i++ {
		next := cur.Child(path[i])
		if next == nil || next.Kind() == KindCommand {
			return nil
		}
		if next.IsQualified() && !pathEqual(next.tree().path, path[:i+1]) {
			return nil
		}
		cur = next
	}
	return cur
}

// GetElementByPathString parses a dotted path and resolves it.
func (t *treeNode) GetElementByPathString(path string) Element {
	p, err := ParsePath(path)
	if err != nil {
		return nil
	}
	return t.GetElementByPath(p)
}

// GetTreeBranch builds a fresh root-to-element chain of minimal copies, with
// child attached at the bottom and modifier applied to the copy of this
// element. Qualified elements hang directly off the new root.
func (t *treeNode) GetTreeBranch(child Element, modifier func(Element)) *Root {
	m := t.self.Minimal()
	if child != nil {
		m.AddChild(child)
	}
	if modifier != nil {
		modifier(m)
	}
	if root, ok := m.(*Root); ok {
		return root
	}
	if t.qualified || t.parent == nil {
		root := NewRoot()
		root.AddChild(m)
		return root
	}
	return t.parent.tree().GetTreeBranch(m, nil)
}

// GetCommand builds the message asking for cmd on this element.
func (t *treeNode) GetCommand(cmd *Command) *Root {
	return t.GetTreeBranch(cmd, nil)
}

// GetDirectory builds a GetDirectory request for this element.
func (t *treeNode) GetDirectory() *Root {
	return t.GetCommand(NewCommand(CommandGetDirectory))
}

// Subscribe registers cb and returns its handle with the request message.
func (t *treeNode) Subscribe(cb Callback) (SubscriptionID, *Root) {
	var id SubscriptionID
	if cb != nil {
		if t.subs == nil {
			t.subs = make(map[SubscriptionID]Callback)
		}
		t.nextSub++
		id = t.nextSub
		t.subs[id] = cb
	}
	return id, t.GetCommand(NewCommand(CommandSubscribe))
}

// Unsubscribe drops the callback registered under id.
func (t *treeNode) Unsubscribe(id SubscriptionID) *Root {
	delete(t.subs, id)
	return t.GetCommand(NewCommand(CommandUnsubscribe))
}

func (t *treeNode) Subscribers() int {
	return len(t.subs)
}

// UpdateSubscribers invokes every registered callback with this element.
func (t *treeNode) UpdateSubscribers() {
	for _, cb := range t.subs {
		cb(t.self)
	}
}

// IsStreamSubscribable reports whether e is a parameter bound to a stream.
func IsStreamSubscribable(e Element) bool {
	p, ok := e.(*Parameter)
	return ok && p.Contents != nil && p.Contents.StreamIdentifier != nil
}

// IsAutoSubscribable reports whether a consumer subscribes to e when it is
// first discovered.
func IsAutoSubscribable(e Element) bool {
	switch e.(type) {
	case *Matrix:
		return true
	case *Parameter:
		return !IsStreamSubscribable(e)
	}
	return false
}

// encodeAddress writes the number or qualified path of an element.
func (t *treeNode) encodeAddress(w *ber.Writer) error {
	w.StartSequence(ctx(fieldNumber))
	if t.qualified {
		if len(t.path) == 0 {
			return ErrMissingPath
		}
		if err := w.WriteRelativeOID(t.path); err != nil {
			return err
		}
	} else {
		if !t.hasNumber {
			return ErrMissingNumber
		}
		w.WriteInt(int64(t.number))
	}
	return w.EndSequence()
}

// encodeChildren writes the element collection when children exist.
func (t *treeNode) encodeChildren(w *ber.Writer) error {
	if len(t.children) == 0 {
		return nil
	}
	w.StartSequence(ctx(fieldChildren))
	w.StartSequence(app(appElementCollection))
	for _, c := range t.children {
		w.StartSequence(ctx(0))
		if err := c.encode(w); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	if err := w.EndSequence(); err != nil {
		return err
	}
	return w.EndSequence()
}

func (t *treeNode) decodeAddress(r *ber.Reader) error {
	if t.qualified {
		p, err := r.ReadRelativeOID()
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return ErrMissingPath
		}
		t.path = p
		t.number = p[len(p)-1]
		t.hasNumber = true
		return nil
	}
	n, err := r.ReadInt()
	if err != nil {
		return err
	}
	t.number = int32(n)
	t.hasNumber = true
	return nil
}

// decodeElement walks the fields of one element, handling number and
// children itself and handing the rest to field.
func decodeElement(r *ber.Reader, t *treeNode, name string, field func(tag byte, r *ber.Reader) error) error {
	return decodeFields(r, t, name, true, field)
}

// decodeFields is decodeElement for elements that may lack a children
// container, whose field 2 then belongs to field.
func decodeFields(r *ber.Reader, t *treeNode, name string, children bool, field func(tag byte, r *ber.Reader) error) error {
	sawNumber := false
	for r.Remaining() > 0 {
		tag, err := r.Peek()
		if err != nil {
			return err
		}
		seq, err := r.GetSequence(tag)
		if err != nil {
			return err
		}
		switch {
		case tag == ctx(fieldNumber):
			if err := t.decodeAddress(seq); err != nil {
				return err
			}
			sawNumber = true
		case tag == ctx(fieldChildren) && children:
			if err := decodeChildren(seq, t); err != nil {
				return err
			}
		default:
			if field == nil {
				return FieldError{Element: name, Tag: tag}
			}
			if err := field(tag, seq); err != nil {
				return err
			}
		}
	}
	if !sawNumber {
		if t.qualified {
			return ErrMissingPath
		}
		return ErrMissingNumber
	}
	return nil
}

func decodeChildren(r *ber.Reader, t *treeNode) error {
	coll, err := r.GetSequence(app(appElementCollection))
	if err != nil {
		return err
	}
	for coll.Remaining() > 0 {
		item, err := coll.GetSequence(ctx(0))
		if err != nil {
			return err
		}
		child, err := decodeChild(item)
		if err != nil {
			return err
		}
		t.AddChild(child)
	}
	return nil
}

// decodeContentsSet opens the SET inside a contents field and hands each
// context-tagged field to field.
func decodeContentsSet(r *ber.Reader, name string, field func(n int, r *ber.Reader) error) error {
	set, err := r.GetSequence(ber.TagSet)
	if err != nil {
		return err
	}
	for set.Remaining() > 0 {
		tag, err := set.Peek()
		if err != nil {
			return err
		}
		if !ber.IsContext(tag) {
			return FieldError{Element: name, Tag: tag}
		}
		seq, err := set.GetSequence(tag)
		if err != nil {
			return err
		}
		if err := field(ber.TagNumber(tag), seq); err != nil {
			return err
		}
	}
	return nil
}
