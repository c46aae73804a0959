// Package xmlmdf attribute drivers, the per-pass driver table and the label tree codec.
//
// Every serializable attribute type has a Driver. A Table maps type identifiers to drivers and is
// built once per storage or retrieval pass; a Session carries the state of that pass (document
// version, diagnostic sink) so drivers stay free of global state.
package xmlmdf

import (
	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

// Driver encodes one attribute type to an element and back
type Driver interface {
	// TypeName is also the element tag of encoded attributes
	TypeName() string
	GUID() ocaf.GUID
	// SinceVersion the first document version that knows the type
	SinceVersion() int
	// NewEmpty returns a blank attribute ready to be filled by Decode
	NewEmpty() ocaf.Attribute
	Encode(s *Session, src ocaf.Attribute, dst *etree.Element) error
	Decode(s *Session, src *etree.Element, dst ocaf.Attribute) error
}

// Session the state of one storage or retrieval pass
type Session struct {
	// Version the document version being written or read
	Version  int
	Messages message.Driver
}

// NewSession msg may be nil
func NewSession(version int, msg message.Driver) *Session {
	if msg == nil {
		msg = message.Nop{}
	}
	return &Session{Version: version, Messages: msg}
}

// Base the common part of concrete drivers
type Base struct {
	name  string
	guid  ocaf.GUID
	since int
	msg   message.Driver
}

func NewBase(name string, guid ocaf.GUID, since int, msg message.Driver) Base {
	if msg == nil {
		msg = message.Nop{}
	}
	return Base{name: name, guid: guid, since: since, msg: msg}
}

func (b Base) TypeName() string {
	return b.name
}

func (b Base) GUID() ocaf.GUID {
	return b.guid
}

func (b Base) SinceVersion() int {
	return b.since
}

// Messages the sink the driver was wired to at table assembly
func (b Base) Messages() message.Driver {
	return b.msg
}
