// Package attrs the standard data attributes and their XML drivers
package attrs

import (
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

var (
	IntegerGUID   = ocaf.MustGUID("2a96b606-ec8b-11d0-bee7-080009dc3333")
	NameGUID      = ocaf.MustGUID("2a96b608-ec8b-11d0-bee7-080009dc3333")
	RealGUID      = ocaf.MustGUID("2a96b60f-ec8b-11d0-bee7-080009dc3333")
	ReferenceGUID = ocaf.MustGUID("2a96b610-ec8b-11d0-bee7-080009dc3333")
)

const (
	IntegerType   = "TDataStd_Integer"
	NameType      = "TDataStd_Name"
	RealType      = "TDataStd_Real"
	ReferenceType = "TDF_Reference"

	// PresentationType was stored by documents before version 3, it has no driver anymore
	PresentationType    = "TPrsStd_AISPresentation"
	PresentationRetired = 3
)

type Integer struct {
	Value int
}

func (*Integer) ID() ocaf.GUID { return IntegerGUID }

type Real struct {
	Value float64
}

func (*Real) ID() ocaf.GUID { return RealGUID }

type Name struct {
	Value string
}

func (*Name) ID() ocaf.GUID { return NameGUID }

// Reference points to another label by entry
type Reference struct {
	Entry string
}

func (*Reference) ID() ocaf.GUID { return ReferenceGUID }

// Resolve finds the referenced label in the tree of from
func (r *Reference) Resolve(from *ocaf.Label) (*ocaf.Label, error) {
	return from.Find(r.Entry, false)
}
