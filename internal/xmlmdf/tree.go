package xmlmdf

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

const (
	LabelElement = "label"
	TagAttr      = "tag"
	GUIDAttr     = "guid"

	// GUIDSinceVersion documents older than this identify attributes by element tag only
	GUIDSinceVersion = 2
)

var (
	ErrEncode      = errors.New("attribute encode")
	ErrInvalidText = errors.New("text cannot be stored in XML")
)

// CheckText rejects invalid UTF-8 and characters outside the XML 1.0 Char production
func CheckText(s string) error {
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && width == 1 {
			return fmt.Errorf("%w: invalid UTF-8 at byte %d", ErrInvalidText, i)
		}
		if !xmlChar(r) {
			return fmt.Errorf("%w: character %U at byte %d", ErrInvalidText, r, i)
		}
		i += width
	}
	return nil
}

func xmlChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// WriteLabel appends l and its subtree to parent as a <label> element.
// Attributes without a driver are reported and left out; a driver failure aborts the walk.
func WriteLabel(s *Session, t *Table, l *ocaf.Label, parent *etree.Element) (int, error) {
	el := parent.CreateElement(LabelElement)
	el.CreateAttr(TagAttr, strconv.Itoa(l.Tag))

	written := 0
	for _, attr := range l.Attributes() {
		drv, ok := t.Lookup(attr.ID())
		if !ok {
			message.Sendf(s.Messages, message.Warning,
				"attribute of type %s on label %s is not supported by the format, not stored", attr.ID(), l.Entry())
			continue
		}
		ael := el.CreateElement(drv.TypeName())
		if s.Version >= GUIDSinceVersion {
			ael.CreateAttr(GUIDAttr, drv.GUID().String())
		}
		if err := drv.Encode(s, attr, ael); err != nil {
			return written, fmt.Errorf("%w: %s on label %s: %v", ErrEncode, drv.TypeName(), l.Entry(), err)
		}
		written++
	}

	for _, c := range l.Children() {
		n, err := WriteLabel(s, t, c, el)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadLabel fills l from a <label> element and recurses into child labels.
// Problems with single attributes or labels are reported and skipped; the walk always completes.
// Returns the number of attributes attached.
func ReadLabel(s *Session, t *Table, el *etree.Element, l *ocaf.Label) int {
	read := 0
	for _, child := range el.ChildElements() {
		if child.Tag == LabelElement {
			tag, err := strconv.Atoi(child.SelectAttrValue(TagAttr, ""))
			if err != nil || tag < 0 {
				message.Sendf(s.Messages, message.Warning,
					"label under %s has a bad tag %q, subtree skipped", l.Entry(), child.SelectAttrValue(TagAttr, ""))
				continue
			}
			sub, _ := l.FindChild(tag, true)
			read += ReadLabel(s, t, child, sub)
			continue
		}
		if readAttribute(s, t, child, l) {
			read++
		}
	}
	return read
}

func readAttribute(s *Session, t *Table, el *etree.Element, l *ocaf.Label) bool {
	drv, ok := resolve(s, t, el, l)
	if !ok {
		return false
	}
	attr := drv.NewEmpty()
	if err := drv.Decode(s, el, attr); err != nil {
		message.Sendf(s.Messages, message.Warning,
			"attribute %s on label %s not read: %v", drv.TypeName(), l.Entry(), err)
		return false
	}
	if err := l.AddAttribute(attr); err != nil {
		message.Sendf(s.Messages, message.Warning, "attribute %s not attached: %v", drv.TypeName(), err)
		return false
	}
	return true
}

// resolve finds the driver of an attribute element, by guid when present, by tag otherwise
func resolve(s *Session, t *Table, el *etree.Element, l *ocaf.Label) (Driver, bool) {
	if t.IsRetired(el.Tag, s.Version) {
		return nil, false
	}

	if raw := el.SelectAttrValue(GUIDAttr, ""); raw != "" {
		id, err := ocaf.ParseGUID(raw)
		if err != nil {
			message.Sendf(s.Messages, message.Warning,
				"attribute %s on label %s has a bad type identifier %q, skipped", el.Tag, l.Entry(), raw)
			return nil, false
		}
		drv, ok := t.Lookup(id)
		if !ok {
			message.Sendf(s.Messages, message.Warning,
				"unknown attribute type %s (%s) on label %s, skipped", id, el.Tag, l.Entry())
			return nil, false
		}
		return drv, true
	}

	drv, ok := t.LookupName(el.Tag)
	if !ok {
		message.Sendf(s.Messages, message.Warning,
			"unknown attribute type %s on label %s, skipped", el.Tag, l.Entry())
		return nil, false
	}
	return drv, true
}
