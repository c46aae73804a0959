package xmlldrivers

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/attrs"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

const (
	FormatName = "XmlLOcaf"
	AppVersion = "xmlocaf 1.0"

	documentElement = "document"
	formatAttr      = "format"
	infoElement     = "info"
	versionAttr     = "DocVersion"
	dateAttr        = "date"
	appVersionAttr  = "appv"
	infoItemElement = "iitem"
	commentsElement = "comments"
	commentElement  = "comment"
)

type StorageState int

const (
	StorageIdle StorageState = iota
	HeaderWritten
	StorageTreeWalking
	ShapeSectionWritten
	StorageDone
	StorageFailed
)

func (s StorageState) String() string {
	return [...]string{"idle", "header written", "tree walking", "shape section written", "done", "failed"}[s]
}

// StorageHooks the format specific steps of a storage pass
type StorageHooks interface {
	// AttributeDrivers builds the driver table of one pass
	AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error)
	// WriteShapeSection appends the shape section to the document element once the tree is written
	WriteShapeSection(s *xmlmdf.Session, table *xmlmdf.Table, root *etree.Element) bool
}

// DocumentStorageDriver writes documents. It holds no pass state and may be shared.
type DocumentStorageDriver struct {
	format    string
	copyright []string
	hooks     StorageHooks
}

// NewDocumentStorageDriver hooks may be nil for the lite format steps
func NewDocumentStorageDriver(format string, hooks StorageHooks, copyright ...string) *DocumentStorageDriver {
	d := &DocumentStorageDriver{format: format, copyright: copyright}
	d.hooks = hooks
	if hooks == nil {
		d.hooks = d
	}
	return d
}

func (d *DocumentStorageDriver) FormatName() string {
	return d.format
}

// AttributeDrivers the lite table: reference attribute types only
func (d *DocumentStorageDriver) AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error) {
	return AttributeDrivers(msg)
}

// WriteShapeSection the lite format has none
func (d *DocumentStorageDriver) WriteShapeSection(*xmlmdf.Session, *xmlmdf.Table, *etree.Element) bool {
	return true
}

type storagePass struct {
	state StorageState
	msg   message.Driver
}

func (p *storagePass) enter(state StorageState) {
	p.state = state
	message.Sendf(p.msg, message.Trace, "storage: %s", state)
}

func (p *storagePass) fail(err error) error {
	p.enter(StorageFailed)
	message.Sendf(p.msg, message.Fail, "document not stored: %v", err)
	return err
}

// Write stores doc into w. Nothing reaches w unless the whole document was encoded.
func (d *DocumentStorageDriver) Write(doc *ocaf.Document, w io.Writer, msg message.Driver) error {
	if msg == nil {
		msg = message.Nop{}
	}
	p := &storagePass{state: StorageIdle, msg: msg}

	version := doc.StorageVersion
	if version == 0 {
		version = CurrentVersion
	}
	if version < 1 || version > CurrentVersion {
		return p.fail(fmt.Errorf("%w: %d", ErrVersion, version))
	}

	full, err := d.hooks.AttributeDrivers(msg)
	if err != nil {
		return p.fail(err)
	}
	table := full.ForVersion(version)
	s := xmlmdf.NewSession(version, msg)

	xdoc := etree.NewDocument()
	xdoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := xdoc.CreateElement(documentElement)
	root.CreateAttr(formatAttr, d.format)
	if err := d.writeHeader(doc, root, version); err != nil {
		return p.fail(err)
	}
	p.enter(HeaderWritten)

	p.enter(StorageTreeWalking)
	n, err := xmlmdf.WriteLabel(s, table, doc.Root, root)
	if err != nil {
		return p.fail(err)
	}

	if !d.hooks.WriteShapeSection(s, table, root) {
		return p.fail(ErrShapeSection)
	}
	p.enter(ShapeSectionWritten)

	// \r in text and line breaks in attributes survive the parser only as character references
	xdoc.WriteSettings.CanonicalText = true
	xdoc.WriteSettings.CanonicalAttrVal = true
	xdoc.Indent(2)
	if _, err := xdoc.WriteTo(w); err != nil {
		return p.fail(fmt.Errorf("%w: %v", ErrWrite, err))
	}
	p.enter(StorageDone)
	message.Sendf(msg, message.Info, "document stored: format %s, version %d, %d attributes", d.format, version, n)
	return nil
}

func (d *DocumentStorageDriver) writeHeader(doc *ocaf.Document, root *etree.Element, version int) error {
	info := root.CreateElement(infoElement)
	info.CreateAttr(versionAttr, strconv.Itoa(version))
	info.CreateAttr(dateAttr, time.Now().UTC().Format(time.RFC3339))
	info.CreateAttr(appVersionAttr, AppVersion)
	for _, line := range d.copyright {
		if err := xmlmdf.CheckText(line); err != nil {
			return fmt.Errorf("%w: copyright: %w", xmlmdf.ErrEncode, err)
		}
		info.CreateElement(infoItemElement).SetText(line)
	}

	comments := root.CreateElement(commentsElement)
	for i, c := range doc.Comments {
		if err := xmlmdf.CheckText(c); err != nil {
			return fmt.Errorf("%w: comment %d: %w", xmlmdf.ErrEncode, i, err)
		}
		comments.CreateElement(commentElement).SetText(c)
	}
	return nil
}

// AttributeDrivers the table of the lite format
func AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error) {
	t := xmlmdf.NewTable()
	if err := attrs.AddDrivers(t, msg); err != nil {
		return nil, err
	}
	return t.Freeze(), nil
}
