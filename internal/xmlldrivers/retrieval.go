package xmlldrivers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

type RetrievalState int

const (
	RetrievalIdle RetrievalState = iota
	HeaderRead
	VersionPropagated
	ShapeSectionRead
	RetrievalTreeWalking
	ShapeSetCleaned
	RetrievalDone
	RetrievalFailed
)

func (s RetrievalState) String() string {
	return [...]string{
		"idle", "header read", "version propagated", "shape section read",
		"tree walking", "shape set cleaned", "done", "failed",
	}[s]
}

// RetrievalHooks the format specific steps of a retrieval pass
type RetrievalHooks interface {
	AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error)
	// ReadShapeSection loads the shape section of root, if any, and returns the driver
	// owning the loaded shapes; nil when the format has no shape section
	ReadShapeSection(table *xmlmdf.Table, root *etree.Element, msg message.Driver) xmlmdf.Driver
	// ShapeSetCleaning releases what ReadShapeSection loaded
	ShapeSetCleaning(handle xmlmdf.Driver)
	PropagateDocumentVersion(s *xmlmdf.Session, version int)
}

// DocumentRetrievalDriver reads documents. It holds no pass state and may be shared.
type DocumentRetrievalDriver struct {
	format string
	hooks  RetrievalHooks
}

// NewDocumentRetrievalDriver hooks may be nil for the lite format steps
func NewDocumentRetrievalDriver(format string, hooks RetrievalHooks) *DocumentRetrievalDriver {
	d := &DocumentRetrievalDriver{format: format}
	d.hooks = hooks
	if hooks == nil {
		d.hooks = d
	}
	return d
}

func (d *DocumentRetrievalDriver) FormatName() string {
	return d.format
}

func (d *DocumentRetrievalDriver) AttributeDrivers(msg message.Driver) (*xmlmdf.Table, error) {
	return AttributeDrivers(msg)
}

func (d *DocumentRetrievalDriver) ReadShapeSection(*xmlmdf.Table, *etree.Element, message.Driver) xmlmdf.Driver {
	return nil
}

func (d *DocumentRetrievalDriver) ShapeSetCleaning(xmlmdf.Driver) {}

// PropagateDocumentVersion makes version visible to every driver of the pass
func (d *DocumentRetrievalDriver) PropagateDocumentVersion(s *xmlmdf.Session, version int) {
	s.Version = version
}

type retrievalPass struct {
	state RetrievalState
	msg   message.Driver
}

func (p *retrievalPass) enter(state RetrievalState) {
	p.state = state
	message.Sendf(p.msg, message.Trace, "retrieval: %s", state)
}

func (p *retrievalPass) fail(err error) error {
	p.enter(RetrievalFailed)
	message.Sendf(p.msg, message.Fail, "document not read: %v", err)
	return err
}

// header the fields read before the tree
type header struct {
	format   string
	version  int
	comments []string
	tree     *etree.Element
}

// Read rebuilds a document from r.
// Header, format and version problems are fatal; problems with single attributes are reported and skipped.
func (d *DocumentRetrievalDriver) Read(r io.Reader, msg message.Driver) (*ocaf.Document, error) {
	if msg == nil {
		msg = message.Nop{}
	}
	p := &retrievalPass{state: RetrievalIdle, msg: msg}

	xdoc := etree.NewDocument()
	if _, err := xdoc.ReadFrom(r); err != nil {
		return nil, p.fail(fmt.Errorf("%w: %v", ErrHeader, err))
	}
	root := xdoc.Root()
	h, err := d.readHeader(root)
	if err != nil {
		return nil, p.fail(err)
	}
	p.enter(HeaderRead)

	full, err := d.hooks.AttributeDrivers(msg)
	if err != nil {
		return nil, p.fail(err)
	}
	table := full.ForVersion(h.version)
	s := xmlmdf.NewSession(0, msg)
	d.hooks.PropagateDocumentVersion(s, h.version)
	p.enter(VersionPropagated)

	handle := d.hooks.ReadShapeSection(table, root, msg)
	p.enter(ShapeSectionRead)

	doc := ocaf.NewDocument(h.format)
	doc.Version = h.version
	doc.Comments = h.comments
	p.enter(RetrievalTreeWalking)
	n := xmlmdf.ReadLabel(s, table, h.tree, doc.Root)

	d.hooks.ShapeSetCleaning(handle)
	p.enter(ShapeSetCleaned)

	p.enter(RetrievalDone)
	message.Sendf(msg, message.Info, "document read: format %s, version %d, %d attributes", h.format, h.version, n)
	return doc, nil
}

func (d *DocumentRetrievalDriver) readHeader(root *etree.Element) (header, error) {
	var h header
	if root == nil || root.Tag != documentElement {
		return h, fmt.Errorf("%w: no %s element", ErrHeader, documentElement)
	}
	h.format = root.SelectAttrValue(formatAttr, "")
	if h.format != d.format {
		return h, fmt.Errorf("%w: file is %q, driver reads %q", ErrFormatMismatch, h.format, d.format)
	}

	info := root.SelectElement(infoElement)
	if info == nil {
		return h, fmt.Errorf("%w: no %s element", ErrHeader, infoElement)
	}
	raw := info.SelectAttrValue(versionAttr, "")
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return h, fmt.Errorf("%w: bad document version %q", ErrHeader, raw)
	}
	if v > CurrentVersion {
		return h, fmt.Errorf("%w: version %d, reader knows up to %d", ErrNewerVersion, v, CurrentVersion)
	}
	h.version = v

	if comments := root.SelectElement(commentsElement); comments != nil {
		for _, c := range comments.SelectElements(commentElement) {
			h.comments = append(h.comments, c.Text())
		}
	}

	h.tree = root.SelectElement(xmlmdf.LabelElement)
	if h.tree == nil {
		return h, fmt.Errorf("%w: no label tree", ErrHeader)
	}
	if tag := strings.TrimSpace(h.tree.SelectAttrValue(xmlmdf.TagAttr, "0")); tag != "0" {
		return h, fmt.Errorf("%w: root label tag %q", ErrHeader, tag)
	}
	return h, nil
}
