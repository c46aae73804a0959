package shapes

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

var NamedShapeGUID = ocaf.MustGUID("c4ef4200-568f-11d1-8940-080009dc3333")

const (
	NamedShapeType = "TNaming_NamedShape"

	evolutionAttr = "evolution"
	shapeAttr     = "shape"
	// documents before refAttrSince keep the index in a <new ref=""/> child
	legacyNewElement = "new"
	legacyRefAttr    = "ref"
	refAttrSince     = 3
)

type Evolution string

const (
	Primitive Evolution = "primitive"
	Generated Evolution = "generated"
	Modify    Evolution = "modify"
	Delete    Evolution = "delete"
	Selected  Evolution = "selected"
)

func (e Evolution) valid() bool {
	switch e {
	case Primitive, Generated, Modify, Delete, Selected:
		return true
	}
	return false
}

// NamedShape attaches a shape to a label. Shape may be nil.
type NamedShape struct {
	Evolution Evolution
	Shape     Shape
}

func (*NamedShape) ID() ocaf.GUID { return NamedShapeGUID }

var errWrongAttribute = errors.New("driver got an attribute of another type")

// NamedShapeDriver encodes NamedShape attributes as indexes into its shape set.
// One instance serves one pass: the set lives as long as the pass.
type NamedShapeDriver struct {
	xmlmdf.Base
	set *Set
}

func NewNamedShapeDriver(kernel Kernel, msg message.Driver) *NamedShapeDriver {
	d := &NamedShapeDriver{Base: xmlmdf.NewBase(NamedShapeType, NamedShapeGUID, 1, msg)}
	d.set = NewSet(kernel, d.Messages())
	return d
}

// AddDrivers registers a NamedShape driver with a fresh shape set
func AddDrivers(t *xmlmdf.Table, kernel Kernel, msg message.Driver) (*NamedShapeDriver, error) {
	if kernel == nil {
		return nil, fmt.Errorf("%w: no shape kernel", xmlmdf.ErrDriverTable)
	}
	d := NewNamedShapeDriver(kernel, msg)
	if err := t.AddDriver(d); err != nil {
		return nil, err
	}
	return d, nil
}

// FindDriver returns the NamedShape driver of a table
func FindDriver(t *xmlmdf.Table) (*NamedShapeDriver, bool) {
	d, ok := t.Lookup(NamedShapeGUID)
	if !ok {
		return nil, false
	}
	nsd, ok := d.(*NamedShapeDriver)
	return nsd, ok
}

func (d *NamedShapeDriver) ShapeSet() *Set {
	return d.set
}

func (d *NamedShapeDriver) NewEmpty() ocaf.Attribute {
	return &NamedShape{}
}

func (d *NamedShapeDriver) Encode(s *xmlmdf.Session, src ocaf.Attribute, dst *etree.Element) error {
	a, ok := src.(*NamedShape)
	if !ok {
		return errWrongAttribute
	}
	evol := a.Evolution
	if evol == "" {
		evol = Primitive
	}
	if !evol.valid() {
		return fmt.Errorf("bad evolution %q", a.Evolution)
	}
	dst.CreateAttr(evolutionAttr, string(evol))

	i := d.set.Add(a.Shape)
	if i < 0 {
		return nil
	}
	if s.Version < refAttrSince {
		dst.CreateElement(legacyNewElement).CreateAttr(legacyRefAttr, strconv.Itoa(i))
		return nil
	}
	dst.CreateAttr(shapeAttr, strconv.Itoa(i))
	return nil
}

// Decode never fails on a missing shape: the attribute keeps a nil shape and a warning is sent
func (d *NamedShapeDriver) Decode(s *xmlmdf.Session, src *etree.Element, dst ocaf.Attribute) error {
	a, ok := dst.(*NamedShape)
	if !ok {
		return errWrongAttribute
	}
	a.Evolution = Evolution(src.SelectAttrValue(evolutionAttr, string(Primitive)))
	if !a.Evolution.valid() {
		return fmt.Errorf("bad evolution %q", a.Evolution)
	}

	raw := src.SelectAttrValue(shapeAttr, "")
	if s.Version < refAttrSince {
		raw = ""
		if el := src.SelectElement(legacyNewElement); el != nil {
			raw = el.SelectAttrValue(legacyRefAttr, "")
		}
	}
	if raw == "" {
		return nil
	}

	i, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("bad shape reference %q", raw)
	}
	sh, found := d.set.Shape(i)
	if !found {
		message.Sendf(s.Messages, message.Warning, "shape %d is missing from the shape section", i)
		return nil
	}
	a.Shape = sh
	return nil
}

// WriteSection writes the pool accumulated by Encode calls
func (d *NamedShapeDriver) WriteSection(s *xmlmdf.Session, section *etree.Element) bool {
	ok := d.set.Write(section)
	if s.Version < refAttrSince {
		section.RemoveAttr(countAttr)
	}
	return ok
}

// ReadSection loads the pool later resolved by Decode calls
func (d *NamedShapeDriver) ReadSection(section *etree.Element) bool {
	return d.set.Read(section)
}

// Clean releases the pool, attributes keep their own shape references
func (d *NamedShapeDriver) Clean() {
	d.set.Clear()
}
