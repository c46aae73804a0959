// Package shapes the shape section: a pool of geometric shapes stored once per document and
// referenced by index from NamedShape attributes.
package shapes

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

// Shape opaque geometry owned by a kernel.
// Implementations must be pointer types: the pool deduplicates by identity.
type Shape interface {
	Kind() string
}

// Kernel saves a shape into an element and gives back an equivalent shape
type Kernel interface {
	Save(s Shape, dst *etree.Element) error
	Load(kind string, src *etree.Element) (Shape, error)
}

const MeshKind = "mesh"

var ErrUnknownKind = errors.New("unknown shape kind")

type Vertex struct {
	X, Y, Z float64
}

// Mesh a named vertex list, the geometry handled by MeshKernel
type Mesh struct {
	Name     string
	Vertices []Vertex
}

func (*Mesh) Kind() string { return MeshKind }

// Equal compares geometry, not identity
func (m *Mesh) Equal(o *Mesh) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Name != o.Name || len(m.Vertices) != len(o.Vertices) {
		return false
	}
	for i := range m.Vertices {
		if m.Vertices[i] != o.Vertices[i] {
			return false
		}
	}
	return true
}

// MeshKernel the reference kernel, stores meshes as <v x="" y="" z=""/> lists
type MeshKernel struct{}

func (MeshKernel) Save(s Shape, dst *etree.Element) error {
	m, ok := s.(*Mesh)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, s.Kind())
	}
	if m.Name != "" {
		if err := xmlmdf.CheckText(m.Name); err != nil {
			return err
		}
		dst.CreateAttr("name", m.Name)
	}
	for _, v := range m.Vertices {
		vel := dst.CreateElement("v")
		vel.CreateAttr("x", formatFloat(v.X))
		vel.CreateAttr("y", formatFloat(v.Y))
		vel.CreateAttr("z", formatFloat(v.Z))
	}
	return nil
}

func (MeshKernel) Load(kind string, src *etree.Element) (Shape, error) {
	if kind != MeshKind {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	m := &Mesh{Name: src.SelectAttrValue("name", "")}
	for _, vel := range src.SelectElements("v") {
		var v Vertex
		var err error
		if v.X, err = parseFloat(vel, "x"); err != nil {
			return nil, err
		}
		if v.Y, err = parseFloat(vel, "y"); err != nil {
			return nil, err
		}
		if v.Z, err = parseFloat(vel, "z"); err != nil {
			return nil, err
		}
		m.Vertices = append(m.Vertices, v)
	}
	return m, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(el *etree.Element, key string) (float64, error) {
	raw := el.SelectAttrValue(key, "")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("vertex %s: bad coordinate %q", key, raw)
	}
	return f, nil
}
