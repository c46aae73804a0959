// Package app the application container: the format table and file level Open/Save
package app

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

var (
	ErrUnknownFormat = errors.New("unknown storage format")
	ErrNoFormat      = errors.New("document has no storage format")
)

type StorageDriver interface {
	Write(doc *ocaf.Document, w io.Writer, msg message.Driver) error
}

type RetrievalDriver interface {
	Read(r io.Reader, msg message.Driver) (*ocaf.Document, error)
}

// Format a named storage/retrieval driver pair
type Format struct {
	Name         string
	NewStorage   func() StorageDriver
	NewRetrieval func() RetrievalDriver
}

// Application owns the format table.
// Formats are defined at setup; later reads need no coordination with writers.
type Application struct {
	mu      sync.RWMutex
	formats map[string]Format

	sugar *zap.SugaredLogger
}

func New(logger *zap.Logger) *Application {
	return &Application{
		formats: make(map[string]Format),
		sugar:   logger.Sugar(),
	}
}

// DefineFormat binds a format name, the last definition wins
func (a *Application) DefineFormat(f Format) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.formats[f.Name]; ok {
		a.sugar.Debugw("format redefined", "format", f.Name)
	}
	a.formats[f.Name] = f
	a.sugar.Debugw("format defined", "format", f.Name)
}

func (a *Application) Format(name string) (Format, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	f, ok := a.formats[name]
	return f, ok
}

// Formats returns the defined format names, sorted
func (a *Application) Formats() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.formats))
	for name := range a.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDocument makes an empty document bound to a defined format
func (a *Application) NewDocument(format string) (*ocaf.Document, error) {
	if _, ok := a.Format(format); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return ocaf.NewDocument(format), nil
}

// Encode writes doc with the storage driver of its format
func (a *Application) Encode(doc *ocaf.Document, w io.Writer, msg message.Driver) error {
	if doc.StorageFormat == "" {
		return ErrNoFormat
	}
	f, ok := a.Format(doc.StorageFormat)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, doc.StorageFormat)
	}
	return f.NewStorage().Write(doc, w, msg)
}

// Decode reads a document; an empty format is taken from the document element
func (a *Application) Decode(data []byte, format string, msg message.Driver) (*ocaf.Document, error) {
	if format == "" {
		sniffed, err := SniffFormat(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		format = sniffed
	}
	f, ok := a.Format(format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return f.NewRetrieval().Read(bytes.NewReader(data), msg)
}

// Save writes doc to path atomically: a failed save leaves the previous file untouched
func (a *Application) Save(doc *ocaf.Document, path string, msg message.Driver) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := a.Encode(doc, tmp, msg); err != nil {
		return errors.Join(err, tmp.Close(), os.Remove(tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Join(fmt.Errorf("failed to rename to %s: %w", path, err), os.Remove(tmpPath))
	}
	a.sugar.Debugw("document saved", "path", path, "format", doc.StorageFormat)
	return nil
}

// Open reads a document from path; an empty format is sniffed from the file
func (a *Application) Open(path, format string, msg message.Driver) (*ocaf.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := a.Decode(data, format, msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.sugar.Debugw("document opened", "path", path, "format", doc.StorageFormat, "version", doc.Version)
	return doc, nil
}

// SniffFormat returns the format attribute of the document element
func SniffFormat(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: no document element: %v", ErrUnknownFormat, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "format" {
				return attr.Value, nil
			}
		}
		return "", fmt.Errorf("%w: document element has no format", ErrUnknownFormat)
	}
}
