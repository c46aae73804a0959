// Package docstore the in-memory document store backed by one file per document
package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

const fileExt = ".xml"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNilDocument      = errors.New("nil document")
)

type record struct {
	doc     *ocaf.Document
	updated time.Time
	dirty   bool
}

// Store keeps documents by id. Stored documents are treated as read-only, Replace swaps them.
type Store struct {
	// disk orders saves against removals and loads; taken before mu
	disk sync.RWMutex

	mu   sync.RWMutex
	docs map[uuid.UUID]*record

	loads singleflight.Group

	app *app.Application
	dir string
	msg message.Driver

	sugar *zap.SugaredLogger
}

func New(a *app.Application, dir string, logger *zap.Logger) *Store {
	return &Store{
		docs:  make(map[uuid.UUID]*record),
		app:   a,
		dir:   dir,
		msg:   message.NewZapDriver(logger),
		sugar: logger.Sugar(),
	}
}

func (s *Store) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+fileExt)
}

// Insert adds doc under a new id
func (s *Store) Insert(doc *ocaf.Document) (uuid.UUID, error) {
	if doc == nil {
		return uuid.Nil, ErrNilDocument
	}
	id := uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[id] = &record{doc: doc, updated: time.Now(), dirty: true}
	s.sugar.Debugw("insert", "id", id, "format", doc.StorageFormat, "labels", doc.NbLabels())
	return id, nil
}

// Get returns the document from memory or loads it from the store directory
func (s *Store) Get(id uuid.UUID) (*ocaf.Document, error) {
	s.mu.RLock()
	rec, ok := s.docs[id]
	s.mu.RUnlock()
	if ok {
		return rec.doc, nil
	}

	res, err, shared := s.loads.Do(id.String(), func() (any, error) {
		s.mu.RLock()
		rec, ok := s.docs[id]
		s.mu.RUnlock()
		if ok {
			return rec.doc, nil
		}
		return s.load(id)
	})
	if err != nil {
		if !errors.Is(err, ErrDocumentNotFound) {
			s.sugar.Errorw("load", "id", id, "err", err, "shared", shared)
		}
		return nil, err
	}
	return res.(*ocaf.Document), nil
}

func (s *Store) load(id uuid.UUID) (*ocaf.Document, error) {
	s.disk.RLock()
	defer s.disk.RUnlock()

	path := s.path(id)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	doc, err := s.app.Open(path, "", s.msg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = &record{doc: doc, updated: time.Now()}
	s.sugar.Debugw("loaded", "id", id, "path", path)
	return doc, nil
}

// Replace swaps the document stored under id
func (s *Store) Replace(id uuid.UUID, doc *ocaf.Document) error {
	if doc == nil {
		return ErrNilDocument
	}
	if _, err := s.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[id] = &record{doc: doc, updated: time.Now(), dirty: true}
	s.sugar.Debugw("replace", "id", id)
	return nil
}

// Remove forgets the document and deletes its file
func (s *Store) Remove(id uuid.UUID) error {
	s.disk.Lock()
	defer s.disk.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, inMemory := s.docs[id]
	delete(s.docs, id)

	err := os.Remove(s.path(id))
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if !inMemory {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
	default:
		return err
	}
	s.sugar.Debugw("remove", "id", id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// IDs returns the ids of the documents in memory, sorted
func (s *Store) IDs() []uuid.UUID {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// SaveToDisk writes the documents changed since the last save.
// Removals wait for the save to finish.
func (s *Store) SaveToDisk(ctx context.Context) error {
	s.disk.Lock()
	defer s.disk.Unlock()

	dirty := s.copyDirty()
	if len(dirty) == 0 {
		return nil
	}

	var errs []error
	saved := 0
	for id, rec := range dirty {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.app.Save(rec.doc, s.path(id), s.msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		s.markClean(id, rec)
		saved++
	}
	s.sugar.Debugw("save to disk", "saved", saved, "failed", len(errs))
	return errors.Join(errs...)
}

func (s *Store) copyDirty() map[uuid.UUID]*record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make(map[uuid.UUID]*record)
	for id, rec := range s.docs {
		if rec.dirty {
			ret[id] = rec
		}
	}
	return ret
}

// markClean unless the document was replaced or removed while saving
func (s *Store) markClean(id uuid.UUID, saved *record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.docs[id]; ok && cur == saved {
		cur.dirty = false
	}
}

// Restore loads every document file of the store directory
func (s *Store) Restore(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var errs []error
	n := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, fileExt))
		if err != nil {
			s.sugar.Debugw("restore: skip", "file", name)
			continue
		}
		if _, err := s.Get(id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	s.sugar.Infow("restored", "documents", n, "failed", len(errs))
	return n, errors.Join(errs...)
}
