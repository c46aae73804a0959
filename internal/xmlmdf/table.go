package xmlmdf

import (
	"errors"
	"fmt"

	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

var (
	ErrDriverTable = errors.New("attribute driver table")
	ErrFrozenTable = errors.New("driver table is frozen")
)

// Table maps attribute type identifiers to drivers.
// It is filled once per pass and frozen before use.
type Table struct {
	byGUID  map[ocaf.GUID]Driver
	byName  map[string]Driver
	order   []Driver
	retired map[string]int
	frozen  bool
}

func NewTable() *Table {
	return &Table{
		byGUID:  make(map[ocaf.GUID]Driver),
		byName:  make(map[string]Driver),
		retired: make(map[string]int),
	}
}

// AddDriver fails on nil drivers, duplicated identifiers or a frozen table
func (t *Table) AddDriver(d Driver) error {
	if t.frozen {
		return ErrFrozenTable
	}
	if d == nil {
		return fmt.Errorf("%w: nil driver", ErrDriverTable)
	}
	if d.GUID() == ocaf.NilGUID || d.TypeName() == "" {
		return fmt.Errorf("%w: driver without identity (%q)", ErrDriverTable, d.TypeName())
	}
	if _, ok := t.byGUID[d.GUID()]; ok {
		return fmt.Errorf("%w: duplicated type %s", ErrDriverTable, d.GUID())
	}
	if _, ok := t.byName[d.TypeName()]; ok {
		return fmt.Errorf("%w: duplicated type name %s", ErrDriverTable, d.TypeName())
	}
	t.byGUID[d.GUID()] = d
	t.byName[d.TypeName()] = d
	t.order = append(t.order, d)
	return nil
}

// Retire declares typeName as dropped starting with document version since.
// Elements of a retired type found in older documents are skipped without diagnostics.
func (t *Table) Retire(typeName string, since int) error {
	if t.frozen {
		return ErrFrozenTable
	}
	t.retired[typeName] = since
	return nil
}

// IsRetired reports whether typeName is a known legacy type for a document of version
func (t *Table) IsRetired(typeName string, version int) bool {
	since, ok := t.retired[typeName]
	return ok && version < since
}

func (t *Table) Freeze() *Table {
	t.frozen = true
	return t
}

func (t *Table) Frozen() bool {
	return t.frozen
}

func (t *Table) Lookup(id ocaf.GUID) (Driver, bool) {
	d, ok := t.byGUID[id]
	return d, ok
}

func (t *Table) LookupName(name string) (Driver, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// Drivers returns the drivers in registration order
func (t *Table) Drivers() []Driver {
	out := make([]Driver, len(t.order))
	copy(out, t.order)
	return out
}

func (t *Table) Len() int {
	return len(t.order)
}

// ForVersion returns a frozen copy holding only drivers known to documents of version
func (t *Table) ForVersion(version int) *Table {
	out := NewTable()
	for _, d := range t.order {
		if d.SinceVersion() > version {
			continue
		}
		// identities were checked when t was filled
		_ = out.AddDriver(d)
	}
	for name, since := range t.retired {
		out.retired[name] = since
	}
	return out.Freeze()
}
