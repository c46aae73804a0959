// Package xmldrivers the "XmlOcaf" format: the lite format plus named shapes and their shape section.
package xmldrivers

import (
	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/attrs"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/shapes"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlldrivers"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

const FormatName = "XmlOcaf"

var (
	StorageDriverGUID   = ocaf.MustGUID("03a56820-8269-11d5-aab2-0050044b1af1")
	RetrievalDriverGUID = ocaf.MustGUID("03a56822-8269-11d5-aab2-0050044b1af1")
)

// attributeDrivers every pass gets its own NamedShape driver and so its own shape set
func attributeDrivers(kernel shapes.Kernel, msg message.Driver) (*xmlmdf.Table, error) {
	t := xmlmdf.NewTable()
	if err := attrs.AddDrivers(t, msg); err != nil {
		return nil, err
	}
	if _, err := shapes.AddDrivers(t, kernel, msg); err != nil {
		return nil, err
	}
	return t.Freeze(), nil
}

// AttributeDrivers the table of the format with the mesh kernel
func AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error) {
	return attributeDrivers(shapes.MeshKernel{}, msg)
}

type DocumentStorageDriver struct {
	*xmlldrivers.DocumentStorageDriver
	kernel shapes.Kernel
}

func NewDocumentStorageDriver(kernel shapes.Kernel, copyright ...string) *DocumentStorageDriver {
	d := &DocumentStorageDriver{kernel: kernel}
	d.DocumentStorageDriver = xmlldrivers.NewDocumentStorageDriver(FormatName, d, copyright...)
	return d
}

func (d *DocumentStorageDriver) AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error) {
	return attributeDrivers(d.kernel, msg)
}

// WriteShapeSection writes the shapes collected while the tree was encoded
func (d *DocumentStorageDriver) WriteShapeSection(s *xmlmdf.Session, table *xmlmdf.Table, root *etree.Element) bool {
	drv, ok := shapes.FindDriver(table)
	if !ok {
		message.Sendf(s.Messages, message.Fail, "no %s driver in the table", shapes.NamedShapeType)
		return false
	}
	return drv.WriteSection(s, root.CreateElement(shapes.SectionElement))
}

type DocumentRetrievalDriver struct {
	*xmlldrivers.DocumentRetrievalDriver
	kernel shapes.Kernel
}

func NewDocumentRetrievalDriver(kernel shapes.Kernel) *DocumentRetrievalDriver {
	d := &DocumentRetrievalDriver{kernel: kernel}
	d.DocumentRetrievalDriver = xmlldrivers.NewDocumentRetrievalDriver(FormatName, d)
	return d
}

func (d *DocumentRetrievalDriver) AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error) {
	return attributeDrivers(d.kernel, msg)
}

// ReadShapeSection loads the shape section into the NamedShape driver of table and returns that driver.
// A missing or damaged section is reported, the tree is still read.
func (d *DocumentRetrievalDriver) ReadShapeSection(table *xmlmdf.Table, root *etree.Element, msg message.Driver) xmlmdf.Driver {
	drv, ok := shapes.FindDriver(table)
	if !ok {
		return nil
	}
	section := root.SelectElement(shapes.SectionElement)
	if section == nil {
		message.Sendf(msg, message.Warning, "document has no shape section")
		return drv
	}
	if !drv.ReadSection(section) {
		message.Sendf(msg, message.Warning, "shape section read with errors")
	}
	return drv
}

func (d *DocumentRetrievalDriver) ShapeSetCleaning(handle xmlmdf.Driver) {
	if drv, ok := handle.(*shapes.NamedShapeDriver); ok {
		drv.Clean()
	}
}

var registry = xmlldrivers.NewRegistry(map[ocaf.GUID]func() any{
	StorageDriverGUID:   func() any { return NewDocumentStorageDriver(shapes.MeshKernel{}) },
	RetrievalDriverGUID: func() any { return NewDocumentRetrievalDriver(shapes.MeshKernel{}) },
})

// Factory returns the storage or retrieval driver singleton; nil, false for other identifiers
func Factory(id ocaf.GUID) (any, bool) {
	return registry.Get(id)
}

// DefineFormat registers "XmlOcaf" with the factory singletons
func DefineFormat(a *app.Application) {
	a.DefineFormat(app.Format{
		Name: FormatName,
		NewStorage: func() app.StorageDriver {
			d, _ := Factory(StorageDriverGUID)
			return d.(*DocumentStorageDriver)
		},
		NewRetrieval: func() app.RetrievalDriver {
			d, _ := Factory(RetrievalDriverGUID)
			return d.(*DocumentRetrievalDriver)
		},
	})
}

// DefineFormatWith registers "XmlOcaf" with dedicated drivers, e.g. another shape kernel or copyright lines
func DefineFormatWith(a *app.Application, kernel shapes.Kernel, copyright ...string) {
	storage := NewDocumentStorageDriver(kernel, copyright...)
	retrieval := NewDocumentRetrievalDriver(kernel)
	a.DefineFormat(app.Format{
		Name:         FormatName,
		NewStorage:   func() app.StorageDriver { return storage },
		NewRetrieval: func() app.RetrievalDriver { return retrieval },
	})
}
