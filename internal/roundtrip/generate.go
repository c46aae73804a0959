package roundtrip

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"strconv"

	"github.com/S0me0neR0man/xmlocaf/internal/attrs"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/shapes"
)

var ErrMismatch = errors.New("documents differ")

// Generator builds random documents; shapes are shared between labels now and then
type Generator struct {
	rnd        *rand.Rand
	format     string
	withShapes bool
	maxDepth   int
	maxWidth   int
}

func NewGenerator(seed int64, format string, withShapes bool) *Generator {
	return &Generator{
		rnd:        rand.New(rand.NewSource(seed)),
		format:     format,
		withShapes: withShapes,
		maxDepth:   3,
		maxWidth:   4,
	}
}

func (g *Generator) Document() *ocaf.Document {
	doc := ocaf.NewDocument(g.format)
	doc.Comments = []string{"generated #" + strconv.Itoa(g.rnd.Intn(1000))}

	var pool []shapes.Shape
	g.fill(doc.Root, 0, &pool)
	return doc
}

func (g *Generator) fill(l *ocaf.Label, depth int, pool *[]shapes.Shape) {
	if g.rnd.Intn(2) == 0 {
		_ = l.AddAttribute(&attrs.Integer{Value: g.rnd.Intn(2000) - 1000})
	}
	if g.rnd.Intn(2) == 0 {
		_ = l.AddAttribute(&attrs.Real{Value: math.Round(g.rnd.NormFloat64()*1e6) / 1e3})
	}
	if g.rnd.Intn(2) == 0 {
		_ = l.AddAttribute(&attrs.Name{Value: fmt.Sprintf("part-%d", g.rnd.Intn(100))})
	}
	if !l.IsRoot() && g.rnd.Intn(4) == 0 {
		_ = l.AddAttribute(&attrs.Reference{Entry: "0"})
	}
	if g.withShapes && g.rnd.Intn(3) == 0 {
		_ = l.AddAttribute(&shapes.NamedShape{Evolution: shapes.Primitive, Shape: g.shape(pool)})
	}

	if depth >= g.maxDepth {
		return
	}
	for i := g.rnd.Intn(g.maxWidth); i > 0; i-- {
		g.fill(l.NewChild(), depth+1, pool)
	}
}

func (g *Generator) shape(pool *[]shapes.Shape) shapes.Shape {
	if len(*pool) > 0 && g.rnd.Intn(2) == 0 {
		return (*pool)[g.rnd.Intn(len(*pool))]
	}
	m := &shapes.Mesh{Name: "mesh" + strconv.Itoa(len(*pool))}
	for i := g.rnd.Intn(5) + 1; i > 0; i-- {
		m.Vertices = append(m.Vertices, shapes.Vertex{X: g.rnd.Float64(), Y: g.rnd.Float64(), Z: float64(g.rnd.Intn(10))})
	}
	*pool = append(*pool, m)
	return m
}

// Compare reports the first difference between two documents
func Compare(want, got *ocaf.Document) error {
	if want.StorageFormat != got.StorageFormat {
		return fmt.Errorf("%w: format %q != %q", ErrMismatch, want.StorageFormat, got.StorageFormat)
	}
	if !reflect.DeepEqual(want.Comments, got.Comments) {
		return fmt.Errorf("%w: comments %v != %v", ErrMismatch, want.Comments, got.Comments)
	}
	return compareLabels(want.Root, got.Root)
}

func compareLabels(want, got *ocaf.Label) error {
	if want.Tag != got.Tag {
		return fmt.Errorf("%w: label %s != %s", ErrMismatch, want.Entry(), got.Entry())
	}
	if want.NbAttributes() != got.NbAttributes() {
		return fmt.Errorf("%w: label %s has %d attributes, want %d", ErrMismatch, got.Entry(), got.NbAttributes(), want.NbAttributes())
	}
	for _, a := range want.Attributes() {
		b, ok := got.FindAttribute(a.ID())
		if !ok {
			return fmt.Errorf("%w: label %s lost attribute %s", ErrMismatch, want.Entry(), a.ID())
		}
		if !reflect.DeepEqual(a, b) {
			return fmt.Errorf("%w: label %s attribute %s: %+v != %+v", ErrMismatch, want.Entry(), a.ID(), a, b)
		}
	}

	wc, gc := want.Children(), got.Children()
	if len(wc) != len(gc) {
		return fmt.Errorf("%w: label %s has %d children, want %d", ErrMismatch, want.Entry(), len(gc), len(wc))
	}
	for i := range wc {
		if err := compareLabels(wc[i], gc[i]); err != nil {
			return err
		}
	}
	return nil
}
