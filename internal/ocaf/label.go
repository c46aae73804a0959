package ocaf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrDuplicateAttribute = errors.New("label already has an attribute of this type")
	ErrNilAttribute       = errors.New("attribute is nil")
	ErrBadEntry           = errors.New("bad label entry")
)

// Attribute a typed unit of data attached to a label.
// ID returns the identifier of the attribute type, not of the instance.
type Attribute interface {
	ID() GUID
}

// Label one node of the label tree.
// Attributes and children keep insertion order.
type Label struct {
	Tag int

	parent   *Label
	attrs    []Attribute
	byID     map[GUID]int
	children []*Label
}

// NewRoot makes a detached root label (tag 0)
func NewRoot() *Label {
	return &Label{byID: make(map[GUID]int)}
}

// Parent returns nil for the root
func (l *Label) Parent() *Label {
	return l.parent
}

// IsRoot reports whether the label has no parent
func (l *Label) IsRoot() bool {
	return l.parent == nil
}

// AddAttribute attaches attr. At most one attribute of a given type per label.
func (l *Label) AddAttribute(attr Attribute) error {
	if attr == nil {
		return ErrNilAttribute
	}
	if l.byID == nil {
		l.byID = make(map[GUID]int)
	}
	if _, ok := l.byID[attr.ID()]; ok {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateAttribute, attr.ID(), l.Entry())
	}
	l.byID[attr.ID()] = len(l.attrs)
	l.attrs = append(l.attrs, attr)
	return nil
}

// FindAttribute looks up the attribute of type id
func (l *Label) FindAttribute(id GUID) (Attribute, bool) {
	i, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return l.attrs[i], true
}

// ForgetAttribute detaches the attribute of type id, reports whether it was there
func (l *Label) ForgetAttribute(id GUID) bool {
	i, ok := l.byID[id]
	if !ok {
		return false
	}
	l.attrs = append(l.attrs[:i], l.attrs[i+1:]...)
	delete(l.byID, id)
	for j := i; j < len(l.attrs); j++ {
		l.byID[l.attrs[j].ID()] = j
	}
	return true
}

// Attributes returns a copy of the attribute list
func (l *Label) Attributes() []Attribute {
	out := make([]Attribute, len(l.attrs))
	copy(out, l.attrs)
	return out
}

// NbAttributes returns the number of attached attributes
func (l *Label) NbAttributes() int {
	return len(l.attrs)
}

// Children returns a copy of the child list
func (l *Label) Children() []*Label {
	out := make([]*Label, len(l.children))
	copy(out, l.children)
	return out
}

// NbChildren returns the number of direct children
func (l *Label) NbChildren() int {
	return len(l.children)
}

// NewChild appends a child with the next free tag
func (l *Label) NewChild() *Label {
	tag := 1
	for _, c := range l.children {
		if c.Tag >= tag {
			tag = c.Tag + 1
		}
	}
	return l.appendChild(tag)
}

// FindChild returns the child with tag, creating it when create is set
func (l *Label) FindChild(tag int, create bool) (*Label, bool) {
	for _, c := range l.children {
		if c.Tag == tag {
			return c, true
		}
	}
	if !create {
		return nil, false
	}
	return l.appendChild(tag), true
}

func (l *Label) appendChild(tag int) *Label {
	c := &Label{Tag: tag, parent: l, byID: make(map[GUID]int)}
	l.children = append(l.children, c)
	return c
}

// Depth returns 0 for the root
func (l *Label) Depth() int {
	d := 0
	for p := l.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Entry returns the tag path from the root, like "0:1:3"
func (l *Label) Entry() string {
	var tags []string
	for p := l; p != nil; p = p.parent {
		tags = append(tags, strconv.Itoa(p.Tag))
	}
	var sb strings.Builder
	for i := len(tags) - 1; i >= 0; i-- {
		sb.WriteString(tags[i])
		if i > 0 {
			sb.WriteByte(':')
		}
	}
	return sb.String()
}

// Find resolves an entry relative to the root of l's tree
func (l *Label) Find(entry string, create bool) (*Label, error) {
	root := l
	for root.parent != nil {
		root = root.parent
	}
	parts := strings.Split(entry, ":")
	if len(parts) == 0 || parts[0] != strconv.Itoa(root.Tag) {
		return nil, fmt.Errorf("%w: %q", ErrBadEntry, entry)
	}
	cur := root
	for _, p := range parts[1:] {
		tag, err := strconv.Atoi(p)
		if err != nil || tag < 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadEntry, entry)
		}
		next, ok := cur.FindChild(tag, create)
		if !ok {
			return nil, fmt.Errorf("%w: %q not found", ErrBadEntry, entry)
		}
		cur = next
	}
	return cur, nil
}

// Walk visits l and its descendants depth-first, stops when f returns false
func (l *Label) Walk(f func(*Label) bool) bool {
	if !f(l) {
		return false
	}
	for _, c := range l.children {
		if !c.Walk(f) {
			return false
		}
	}
	return true
}
