package xmlldrivers

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/S0me0neR0man/xmlocaf/internal/attrs"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

func sampleDocument(t *testing.T) *ocaf.Document {
	doc := ocaf.NewDocument(FormatName)
	doc.Comments = []string{"first", "second"}
	require.NoError(t, doc.Root.AddAttribute(&attrs.Name{Value: "root"}))

	child := doc.Root.NewChild()
	require.NoError(t, child.AddAttribute(&attrs.Integer{Value: 42}))
	require.NoError(t, child.AddAttribute(&attrs.Real{Value: 2.5}))

	sub, _ := child.FindChild(3, true)
	require.NoError(t, sub.AddAttribute(&attrs.Reference{Entry: "0:1"}))
	return doc
}

func integerAt(t *testing.T, doc *ocaf.Document, entry string) int {
	l, err := doc.Root.Find(entry, false)
	require.NoError(t, err)
	a, ok := l.FindAttribute(attrs.IntegerGUID)
	require.True(t, ok, "no integer on %s", entry)
	return a.(*attrs.Integer).Value
}

func TestDocument_RoundTrip(t *testing.T) {
	msg := message.NewCollector(nil)
	var buf bytes.Buffer
	require.NoError(t, NewDocumentStorageDriver(FormatName, nil, "(c) xmlocaf").Write(sampleDocument(t), &buf, msg))
	require.Zero(t, msg.Count(message.Warning))

	got, err := NewDocumentRetrievalDriver(FormatName, nil).Read(&buf, msg)
	require.NoError(t, err)
	require.Zero(t, msg.Count(message.Warning))

	require.Equal(t, FormatName, got.StorageFormat)
	require.Equal(t, CurrentVersion, got.Version)
	require.Equal(t, []string{"first", "second"}, got.Comments)
	require.Equal(t, 3, got.NbLabels())
	require.Equal(t, 4, got.NbAttributes())
	require.Equal(t, 42, integerAt(t, got, "0:1"))

	sub, err := got.Root.Find("0:1:3", false)
	require.NoError(t, err)
	ref, ok := sub.FindAttribute(attrs.ReferenceGUID)
	require.True(t, ok)
	target, err := ref.(*attrs.Reference).Resolve(sub)
	require.NoError(t, err)
	require.Equal(t, "0:1", target.Entry())
}

func TestDocument_RoundTripText(t *testing.T) {
	values := []string{"a\r\nb", "\r", "cr\rlf\n", " \t ", "quote \" apos '", "> gt"}

	doc := ocaf.NewDocument(FormatName)
	doc.Comments = []string{"one\r\ntwo", "  "}
	for _, v := range values {
		require.NoError(t, doc.Root.NewChild().AddAttribute(&attrs.Name{Value: v}))
	}

	msg := message.NewCollector(nil)
	var buf bytes.Buffer
	require.NoError(t, NewDocumentStorageDriver(FormatName, nil, "line\r\n").Write(doc, &buf, msg))
	got, err := NewDocumentRetrievalDriver(FormatName, nil).Read(&buf, msg)
	require.NoError(t, err)
	require.Zero(t, msg.Count(message.Warning))

	require.Equal(t, doc.Comments, got.Comments)
	for i, v := range values {
		l, ok := got.Root.FindChild(i+1, false)
		require.True(t, ok)
		a, ok := l.FindAttribute(attrs.NameGUID)
		require.True(t, ok)
		require.Equal(t, v, a.(*attrs.Name).Value)
	}
}

func TestDocument_WriteUnrepresentableText(t *testing.T) {
	named := ocaf.NewDocument(FormatName)
	require.NoError(t, named.Root.AddAttribute(&attrs.Name{Value: "a\x01b"}))

	commented := ocaf.NewDocument(FormatName)
	commented.Comments = []string{"bell\a"}

	for _, doc := range []*ocaf.Document{named, commented} {
		msg := message.NewCollector(nil)
		var buf bytes.Buffer
		err := NewDocumentStorageDriver(FormatName, nil).Write(doc, &buf, msg)
		require.ErrorIs(t, err, xmlmdf.ErrEncode)
		require.Equal(t, StatusDriverFailure, StatusOf(err))
		require.Equal(t, 1, msg.Count(message.Fail))
		require.Zero(t, buf.Len())
	}

	var buf bytes.Buffer
	err := NewDocumentStorageDriver(FormatName, nil, "\x02").Write(sampleDocument(t), &buf, nil)
	require.ErrorIs(t, err, xmlmdf.ErrInvalidText)
	require.Zero(t, buf.Len())
}

func TestDocument_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDocumentStorageDriver(FormatName, nil, "(c) xmlocaf").Write(sampleDocument(t), &buf, nil))

	xdoc := etree.NewDocument()
	require.NoError(t, xdoc.ReadFromBytes(buf.Bytes()))
	root := xdoc.Root()
	require.Equal(t, "document", root.Tag)
	require.Equal(t, FormatName, root.SelectAttrValue("format", ""))

	info := root.SelectElement("info")
	require.NotNil(t, info)
	require.Equal(t, "3", info.SelectAttrValue("DocVersion", ""))
	require.Equal(t, AppVersion, info.SelectAttrValue("appv", ""))
	require.NotEmpty(t, info.SelectAttrValue("date", ""))
	require.Equal(t, "(c) xmlocaf", info.SelectElement("iitem").Text())
	require.Len(t, root.SelectElement("comments").SelectElements("comment"), 2)
	require.Nil(t, root.SelectElement("shapes"))

	integer := root.FindElement("label/label/TDataStd_Integer")
	require.NotNil(t, integer)
	require.Equal(t, "42", integer.SelectAttrValue("val", ""))
	require.Equal(t, attrs.IntegerGUID.String(), integer.SelectAttrValue("guid", ""))
}

func TestDocument_WriteOlderVersion(t *testing.T) {
	doc := sampleDocument(t)
	doc.StorageVersion = 1

	msg := message.NewCollector(nil)
	var buf bytes.Buffer
	require.NoError(t, NewDocumentStorageDriver(FormatName, nil).Write(doc, &buf, msg))
	// references did not exist in version 1
	require.Equal(t, 1, msg.Count(message.Warning))
	require.NotContains(t, buf.String(), "guid=")
	require.Contains(t, buf.String(), "<TDataStd_Integer>42</TDataStd_Integer>")

	got, err := NewDocumentRetrievalDriver(FormatName, nil).Read(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
	require.Equal(t, 3, got.NbAttributes())
	require.Equal(t, 42, integerAt(t, got, "0:1"))

	doc.StorageVersion = CurrentVersion + 1
	err = NewDocumentStorageDriver(FormatName, nil).Write(doc, &buf, nil)
	require.ErrorIs(t, err, ErrVersion)
	require.Equal(t, StatusUnsupportedVersion, StatusOf(err))
}

const legacyV1 = `<?xml version="1.0"?>
<document format="XmlLOcaf">
  <info DocVersion="1"/>
  <label tag="0">
    <TDataStd_Name>legacy</TDataStd_Name>
    <TPrsStd_AISPresentation/>
    <label tag="2">
      <TDataStd_Integer> 7 </TDataStd_Integer>
      <TDF_Reference>0:2</TDF_Reference>
    </label>
  </label>
</document>`

const legacyV2 = `<?xml version="1.0"?>
<document format="XmlLOcaf">
  <info DocVersion="2"/>
  <label tag="0">
    <TPrsStd_AISPresentation guid="04fb4d00-5690-11d1-8940-080009dc3333"/>
    <label tag="2">
      <TDataStd_Integer guid="2a96b606-ec8b-11d0-bee7-080009dc3333">7</TDataStd_Integer>
      <TDF_Reference guid="2a96b610-ec8b-11d0-bee7-080009dc3333">0:2</TDF_Reference>
    </label>
  </label>
</document>`

func TestDocument_ReadOlderVersions(t *testing.T) {
	msg := message.NewCollector(nil)
	v1, err := NewDocumentRetrievalDriver(FormatName, nil).Read(strings.NewReader(legacyV1), msg)
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)
	require.Equal(t, 7, integerAt(t, v1, "0:2"))
	// the presentation is skipped silently, the reference is unknown to version 1
	require.Equal(t, 1, msg.Count(message.Warning))
	require.Equal(t, 2, v1.NbAttributes())

	msg.Reset()
	v2, err := NewDocumentRetrievalDriver(FormatName, nil).Read(strings.NewReader(legacyV2), msg)
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Zero(t, msg.Count(message.Warning))
	require.Equal(t, 2, v2.NbAttributes())
	require.Equal(t, 7, integerAt(t, v2, "0:2"))
}

func TestDocument_ReadUnknownAttribute(t *testing.T) {
	src := `<document format="XmlLOcaf"><info DocVersion="3"/>
<label tag="0">
  <XCAFDoc_Color guid="efd212ed-6dfd-11d4-b9c8-0060b0ee281b" r="1"/>
  <TDataStd_Integer guid="2a96b606-ec8b-11d0-bee7-080009dc3333" val="5"/>
</label></document>`

	msg := message.NewCollector(nil)
	doc, err := NewDocumentRetrievalDriver(FormatName, nil).Read(strings.NewReader(src), msg)
	require.NoError(t, err)
	require.Len(t, msg.Entries(message.Warning), 1)
	require.Contains(t, msg.Entries(message.Warning)[0].Text, "XCAFDoc_Color")
	require.Equal(t, 1, doc.NbAttributes())
}

func TestDocument_ReadFatal(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		err    error
		status Status
	}{
		{
			name:   "not xml",
			src:    `<document format="XmlLOcaf"><info`,
			err:    ErrHeader,
			status: StatusHeaderError,
		},
		{
			name:   "empty",
			src:    ``,
			err:    ErrHeader,
			status: StatusHeaderError,
		},
		{
			name:   "other format",
			src:    `<document format="XmlOcaf"><info DocVersion="3"/><label tag="0"/></document>`,
			err:    ErrFormatMismatch,
			status: StatusFormatMismatch,
		},
		{
			name:   "no info",
			src:    `<document format="XmlLOcaf"><label tag="0"/></document>`,
			err:    ErrHeader,
			status: StatusHeaderError,
		},
		{
			name:   "bad version",
			src:    `<document format="XmlLOcaf"><info DocVersion="x"/><label tag="0"/></document>`,
			err:    ErrHeader,
			status: StatusHeaderError,
		},
		{
			name:   "newer version",
			src:    `<document format="XmlLOcaf"><info DocVersion="4"/><label tag="0"/></document>`,
			err:    ErrNewerVersion,
			status: StatusNewerVersion,
		},
		{
			name:   "no tree",
			src:    `<document format="XmlLOcaf"><info DocVersion="3"/></document>`,
			err:    ErrHeader,
			status: StatusHeaderError,
		},
		{
			name:   "bad root tag",
			src:    `<document format="XmlLOcaf"><info DocVersion="3"/><label tag="1"/></document>`,
			err:    ErrHeader,
			status: StatusHeaderError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := message.NewCollector(nil)
			doc, err := NewDocumentRetrievalDriver(FormatName, nil).Read(strings.NewReader(tt.src), msg)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, doc)
			require.Equal(t, tt.status, StatusOf(err))
			require.Equal(t, 1, msg.Count(message.Fail))
		})
	}
}

type failingShapes struct {
	*DocumentStorageDriver
}

func (failingShapes) WriteShapeSection(*xmlmdf.Session, *xmlmdf.Table, *etree.Element) bool {
	return false
}

type badTable struct {
	*DocumentStorageDriver
}

func (badTable) AttributeDrivers(message.Driver) (*xmlmdf.Table, error) {
	t := xmlmdf.NewTable()
	return nil, t.AddDriver(nil)
}

func TestDocument_WriteFailures(t *testing.T) {
	f := &failingShapes{}
	f.DocumentStorageDriver = NewDocumentStorageDriver(FormatName, f)

	var buf bytes.Buffer
	err := f.Write(sampleDocument(t), &buf, nil)
	require.ErrorIs(t, err, ErrShapeSection)
	require.Equal(t, StatusDriverFailure, StatusOf(err))
	require.Zero(t, buf.Len())

	b := &badTable{}
	b.DocumentStorageDriver = NewDocumentStorageDriver(FormatName, b)
	err = b.Write(sampleDocument(t), &buf, nil)
	require.ErrorIs(t, err, xmlmdf.ErrDriverTable)
	require.Equal(t, StatusDriverFailure, StatusOf(err))
	require.Zero(t, buf.Len())

	doc := sampleDocument(t)
	child, _ := doc.Root.FindChild(1, false)
	sub, _ := child.FindChild(3, false)
	sub.ForgetAttribute(attrs.ReferenceGUID)
	require.NoError(t, sub.AddAttribute(&attrs.Reference{Entry: "0:x"}))
	err = NewDocumentStorageDriver(FormatName, nil).Write(doc, &buf, nil)
	require.ErrorIs(t, err, xmlmdf.ErrEncode)
	require.Equal(t, StatusDriverFailure, StatusOf(err))
	require.Zero(t, buf.Len())
}

func TestDocument_States(t *testing.T) {
	msg := message.NewCollector(nil)
	var buf bytes.Buffer
	require.NoError(t, NewDocumentStorageDriver(FormatName, nil).Write(sampleDocument(t), &buf, msg))
	_, err := NewDocumentRetrievalDriver(FormatName, nil).Read(&buf, msg)
	require.NoError(t, err)

	var trace []string
	for _, e := range msg.Entries(message.Trace) {
		if e.Gravity == message.Trace {
			trace = append(trace, e.Text)
		}
	}
	require.Equal(t, []string{
		"storage: header written",
		"storage: tree walking",
		"storage: shape section written",
		"storage: done",
		"retrieval: header read",
		"retrieval: version propagated",
		"retrieval: shape section read",
		"retrieval: tree walking",
		"retrieval: shape set cleaned",
		"retrieval: done",
	}, trace)
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, StatusOK, StatusOf(nil))
	require.Equal(t, StatusWriteFailure, StatusOf(fmt.Errorf("%w: disk full", ErrWrite)))
	require.Equal(t, StatusUnsupportedVersion, StatusOf(fmt.Errorf("%w: 9", ErrVersion)))
	require.Equal(t, StatusDriverFailure, StatusOf(fmt.Errorf("%w: x", xmlmdf.ErrEncode)))
	require.Equal(t, "unsupported storage version", StatusUnsupportedVersion.String())
}

func TestFactory(t *testing.T) {
	s1, ok := Factory(StorageDriverGUID)
	require.True(t, ok)
	s2, _ := Factory(StorageDriverGUID)
	require.Same(t, s1.(*DocumentStorageDriver), s2.(*DocumentStorageDriver))

	r, ok := Factory(RetrievalDriverGUID)
	require.True(t, ok)
	require.Equal(t, FormatName, r.(*DocumentRetrievalDriver).FormatName())

	_, ok = Factory(attrs.IntegerGUID)
	require.False(t, ok)
}
