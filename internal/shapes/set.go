package shapes

import (
	"reflect"
	"strconv"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
)

const (
	SectionElement = "shapes"
	shapeElement   = "shape"
	countAttr      = "nb"
	indexAttr      = "index"
	kindAttr       = "kind"
)

// Set the shape pool of one pass: append-only, an identical shape is stored once
type Set struct {
	kernel Kernel
	msg    message.Driver

	shapes []Shape
	index  map[Shape]int
}

func NewSet(kernel Kernel, msg message.Driver) *Set {
	if msg == nil {
		msg = message.Nop{}
	}
	return &Set{
		kernel: kernel,
		msg:    msg,
		index:  make(map[Shape]int),
	}
}

// Add registers s and returns its index; -1 for nil
func (set *Set) Add(s Shape) int {
	if s == nil {
		return -1
	}
	if !reflect.TypeOf(s).Comparable() {
		set.shapes = append(set.shapes, s)
		return len(set.shapes) - 1
	}
	if i, ok := set.index[s]; ok {
		return i
	}
	set.shapes = append(set.shapes, s)
	set.index[s] = len(set.shapes) - 1
	return len(set.shapes) - 1
}

// Index returns the position of s if it was added
func (set *Set) Index(s Shape) (int, bool) {
	if s == nil || !reflect.TypeOf(s).Comparable() {
		return -1, false
	}
	i, ok := set.index[s]
	return i, ok
}

// Shape returns nil, false for indexes outside the pool or entries that failed to load
func (set *Set) Shape(i int) (Shape, bool) {
	if i < 0 || i >= len(set.shapes) || set.shapes[i] == nil {
		return nil, false
	}
	return set.shapes[i], true
}

func (set *Set) Len() int {
	return len(set.shapes)
}

// Clear drops every shape, the set can be reused
func (set *Set) Clear() {
	set.shapes = nil
	set.index = make(map[Shape]int)
}

// Write serializes the pool into section.
// It returns false when the pool is inconsistent or the kernel fails.
func (set *Set) Write(section *etree.Element) bool {
	section.CreateAttr(countAttr, strconv.Itoa(len(set.shapes)))
	for i, s := range set.shapes {
		if s == nil {
			message.Sendf(set.msg, message.Fail, "shape pool entry %d is empty", i)
			return false
		}
		el := section.CreateElement(shapeElement)
		el.CreateAttr(indexAttr, strconv.Itoa(i))
		el.CreateAttr(kindAttr, s.Kind())
		if err := set.kernel.Save(s, el); err != nil {
			message.Sendf(set.msg, message.Fail, "shape %d not written: %v", i, err)
			return false
		}
	}
	return true
}

// Read replaces the pool with the content of section.
// The pool holds one slot per <shape> element whatever nb announces.
// Malformed entries are reported and left empty; false if anything was reported.
func (set *Set) Read(section *etree.Element) bool {
	set.Clear()

	elements := section.SelectElements(shapeElement)
	n := len(elements)
	ok := true
	if raw := section.SelectAttrValue(countAttr, ""); raw != "" {
		nb, err := strconv.Atoi(raw)
		switch {
		case err != nil || nb < 0:
			message.Sendf(set.msg, message.Warning, "shape section has a bad count %q", raw)
			ok = false
		case nb != n:
			message.Sendf(set.msg, message.Warning, "shape section announces %d shapes, holds %d", nb, n)
			ok = false
		}
	}
	set.shapes = make([]Shape, n)
	seen := make([]bool, n)

	for pos, el := range elements {
		i, err := strconv.Atoi(el.SelectAttrValue(indexAttr, strconv.Itoa(pos)))
		if err != nil || i < 0 || i >= n {
			message.Sendf(set.msg, message.Warning, "shape element %d has a bad index", pos)
			ok = false
			continue
		}
		if seen[i] {
			message.Sendf(set.msg, message.Warning, "shape %d is defined twice, element %d ignored", i, pos)
			ok = false
			continue
		}
		seen[i] = true
		kind := el.SelectAttrValue(kindAttr, "")
		if kind == "" {
			message.Sendf(set.msg, message.Warning, "shape %d has no kind", i)
			ok = false
			continue
		}
		s, err := set.kernel.Load(kind, el)
		if err != nil {
			message.Sendf(set.msg, message.Warning, "shape %d not read: %v", i, err)
			ok = false
			continue
		}
		set.shapes[i] = s
		if reflect.TypeOf(s).Comparable() {
			set.index[s] = i
		}
	}
	return ok
}
