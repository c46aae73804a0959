// Package xmlldrivers document storage and retrieval orchestration.
//
// The drivers of this package write and read the header, the label tree and delegate the shape
// section to hooks. Used as is they implement the lite "XmlLOcaf" format, which has no shape
// section; richer formats embed them and override the hooks.
package xmlldrivers

import (
	"errors"

	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

// CurrentVersion the document version written by default and the newest one accepted on read
const CurrentVersion = 3

var (
	ErrHeader         = errors.New("bad document header")
	ErrFormatMismatch = errors.New("document format mismatch")
	ErrNewerVersion   = errors.New("document written by a newer version")
	ErrShapeSection   = errors.New("shape section")
	ErrWrite          = errors.New("document write")
	ErrVersion        = errors.New("unsupported storage version")
)

type Status int

const (
	StatusOK Status = iota
	StatusHeaderError
	StatusFormatMismatch
	StatusNewerVersion
	StatusDriverFailure
	StatusWriteFailure
	StatusUnsupportedVersion
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusHeaderError:
		return "header error"
	case StatusFormatMismatch:
		return "format mismatch"
	case StatusNewerVersion:
		return "newer version"
	case StatusDriverFailure:
		return "driver failure"
	case StatusWriteFailure:
		return "write failure"
	case StatusUnsupportedVersion:
		return "unsupported storage version"
	}
	return "unknown"
}

// StatusOf classifies an error returned by Read or Write
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrHeader):
		return StatusHeaderError
	case errors.Is(err, ErrFormatMismatch):
		return StatusFormatMismatch
	case errors.Is(err, ErrNewerVersion):
		return StatusNewerVersion
	case errors.Is(err, ErrVersion):
		return StatusUnsupportedVersion
	case errors.Is(err, xmlmdf.ErrDriverTable), errors.Is(err, xmlmdf.ErrFrozenTable),
		errors.Is(err, xmlmdf.ErrEncode), errors.Is(err, ErrShapeSection):
		return StatusDriverFailure
	}
	return StatusWriteFailure
}
