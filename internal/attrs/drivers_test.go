package attrs

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

func roundTrip(t *testing.T, d xmlmdf.Driver, version int, in ocaf.Attribute) (ocaf.Attribute, *etree.Element) {
	t.Helper()
	s := xmlmdf.NewSession(version, nil)
	el := etree.NewElement(d.TypeName())
	require.NoError(t, d.Encode(s, in, el))

	out := d.NewEmpty()
	require.NoError(t, d.Decode(s, el, out))
	return out, el
}

func TestAddDrivers(t *testing.T) {
	table := xmlmdf.NewTable()
	require.NoError(t, AddDrivers(table, message.Nop{}))
	require.Equal(t, 4, table.Len())
	require.True(t, table.IsRetired(PresentationType, 2))
	require.False(t, table.IsRetired(PresentationType, 3))

	// a second registration of the same types is a table construction failure
	require.ErrorIs(t, AddDrivers(table, nil), xmlmdf.ErrDriverTable)
}

func TestIntegerDriver_Versions(t *testing.T) {
	d := NewIntegerDriver(nil)

	out, el := roundTrip(t, d, 3, &Integer{Value: 42})
	require.Equal(t, 42, out.(*Integer).Value)
	require.Equal(t, "42", el.SelectAttrValue("val", ""))
	require.Empty(t, el.Text())

	out, el = roundTrip(t, d, 2, &Integer{Value: -7})
	require.Equal(t, -7, out.(*Integer).Value)
	require.Equal(t, "-7", el.Text())
	require.Nil(t, el.SelectAttr("val"))

	bad := etree.NewElement(IntegerType)
	bad.CreateAttr("val", "forty-two")
	require.Error(t, d.Decode(xmlmdf.NewSession(3, nil), bad, d.NewEmpty()))
	require.Error(t, d.Encode(xmlmdf.NewSession(3, nil), &Real{}, bad))
}

func TestRealDriver(t *testing.T) {
	d := NewRealDriver(nil)
	out, _ := roundTrip(t, d, 3, &Real{Value: 0.1 + 0.2})
	require.Equal(t, 0.1+0.2, out.(*Real).Value)
}

func TestNameDriver(t *testing.T) {
	d := NewNameDriver(nil)
	out, _ := roundTrip(t, d, 1, &Name{Value: "bracket <left> & co"})
	require.Equal(t, "bracket <left> & co", out.(*Name).Value)

	for _, v := range []string{"a\x01b", "nul\x00", "bad \xff utf8", "\uFFFE"} {
		err := d.Encode(xmlmdf.NewSession(3, nil), &Name{Value: v}, etree.NewElement(NameType))
		require.ErrorIs(t, err, xmlmdf.ErrInvalidText, "%q", v)
	}
	out, _ = roundTrip(t, d, 3, &Name{Value: "a\r\nb\t\uFFFD"})
	require.Equal(t, "a\r\nb\t\uFFFD", out.(*Name).Value)
}

func TestReferenceDriver(t *testing.T) {
	d := NewReferenceDriver(nil)
	require.Equal(t, 2, d.SinceVersion())

	out, _ := roundTrip(t, d, 3, &Reference{Entry: "0:1:4"})
	require.Equal(t, "0:1:4", out.(*Reference).Entry)

	el := etree.NewElement(ReferenceType)
	require.Error(t, d.Encode(xmlmdf.NewSession(3, nil), &Reference{Entry: "0::1"}, el))

	el.SetText("0:a")
	require.Error(t, d.Decode(xmlmdf.NewSession(3, nil), el, d.NewEmpty()))

	root := ocaf.NewRoot()
	target := root.NewChild().NewChild()
	ref := &Reference{Entry: target.Entry()}
	got, err := ref.Resolve(root)
	require.NoError(t, err)
	require.Same(t, target, got)
}
