package attrs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

const (
	valueAttr = "val"

	// integerAttrSince older documents keep integers as element text
	integerAttrSince = 3
	referenceSince   = 2
)

var errWrongAttribute = errors.New("driver got an attribute of another type")

// AddDrivers registers the drivers of this package and the retired legacy types
func AddDrivers(t *xmlmdf.Table, msg message.Driver) error {
	drivers := []xmlmdf.Driver{
		NewIntegerDriver(msg),
		NewRealDriver(msg),
		NewNameDriver(msg),
		NewReferenceDriver(msg),
	}
	for _, d := range drivers {
		if err := t.AddDriver(d); err != nil {
			return err
		}
	}
	return t.Retire(PresentationType, PresentationRetired)
}

type IntegerDriver struct {
	xmlmdf.Base
}

func NewIntegerDriver(msg message.Driver) *IntegerDriver {
	return &IntegerDriver{Base: xmlmdf.NewBase(IntegerType, IntegerGUID, 1, msg)}
}

func (d *IntegerDriver) NewEmpty() ocaf.Attribute {
	return &Integer{}
}

func (d *IntegerDriver) Encode(s *xmlmdf.Session, src ocaf.Attribute, dst *etree.Element) error {
	a, ok := src.(*Integer)
	if !ok {
		return errWrongAttribute
	}
	v := strconv.Itoa(a.Value)
	if s.Version < integerAttrSince {
		dst.SetText(v)
		return nil
	}
	dst.CreateAttr(valueAttr, v)
	return nil
}

func (d *IntegerDriver) Decode(s *xmlmdf.Session, src *etree.Element, dst ocaf.Attribute) error {
	a, ok := dst.(*Integer)
	if !ok {
		return errWrongAttribute
	}
	raw := src.SelectAttrValue(valueAttr, "")
	if s.Version < integerAttrSince {
		raw = strings.TrimSpace(src.Text())
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("bad integer %q", raw)
	}
	a.Value = v
	return nil
}

type RealDriver struct {
	xmlmdf.Base
}

func NewRealDriver(msg message.Driver) *RealDriver {
	return &RealDriver{Base: xmlmdf.NewBase(RealType, RealGUID, 1, msg)}
}

func (d *RealDriver) NewEmpty() ocaf.Attribute {
	return &Real{}
}

func (d *RealDriver) Encode(_ *xmlmdf.Session, src ocaf.Attribute, dst *etree.Element) error {
	a, ok := src.(*Real)
	if !ok {
		return errWrongAttribute
	}
	dst.CreateAttr(valueAttr, strconv.FormatFloat(a.Value, 'g', -1, 64))
	return nil
}

func (d *RealDriver) Decode(_ *xmlmdf.Session, src *etree.Element, dst ocaf.Attribute) error {
	a, ok := dst.(*Real)
	if !ok {
		return errWrongAttribute
	}
	raw := src.SelectAttrValue(valueAttr, "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("bad real %q", raw)
	}
	a.Value = v
	return nil
}

type NameDriver struct {
	xmlmdf.Base
}

func NewNameDriver(msg message.Driver) *NameDriver {
	return &NameDriver{Base: xmlmdf.NewBase(NameType, NameGUID, 1, msg)}
}

func (d *NameDriver) NewEmpty() ocaf.Attribute {
	return &Name{}
}

func (d *NameDriver) Encode(_ *xmlmdf.Session, src ocaf.Attribute, dst *etree.Element) error {
	a, ok := src.(*Name)
	if !ok {
		return errWrongAttribute
	}
	if err := xmlmdf.CheckText(a.Value); err != nil {
		return err
	}
	dst.SetText(a.Value)
	return nil
}

func (d *NameDriver) Decode(_ *xmlmdf.Session, src *etree.Element, dst ocaf.Attribute) error {
	a, ok := dst.(*Name)
	if !ok {
		return errWrongAttribute
	}
	a.Value = src.Text()
	return nil
}

type ReferenceDriver struct {
	xmlmdf.Base
}

func NewReferenceDriver(msg message.Driver) *ReferenceDriver {
	return &ReferenceDriver{Base: xmlmdf.NewBase(ReferenceType, ReferenceGUID, referenceSince, msg)}
}

func (d *ReferenceDriver) NewEmpty() ocaf.Attribute {
	return &Reference{}
}

func (d *ReferenceDriver) Encode(_ *xmlmdf.Session, src ocaf.Attribute, dst *etree.Element) error {
	a, ok := src.(*Reference)
	if !ok {
		return errWrongAttribute
	}
	if !validEntry(a.Entry) {
		return fmt.Errorf("bad entry %q", a.Entry)
	}
	dst.SetText(a.Entry)
	return nil
}

func (d *ReferenceDriver) Decode(_ *xmlmdf.Session, src *etree.Element, dst ocaf.Attribute) error {
	a, ok := dst.(*Reference)
	if !ok {
		return errWrongAttribute
	}
	entry := strings.TrimSpace(src.Text())
	if !validEntry(entry) {
		return fmt.Errorf("bad entry %q", entry)
	}
	a.Entry = entry
	return nil
}

func validEntry(entry string) bool {
	if entry == "" {
		return false
	}
	for _, part := range strings.Split(entry, ":") {
		if _, err := strconv.ParseUint(part, 10, 31); err != nil {
			return false
		}
	}
	return true
}
