package xmlldrivers

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

var (
	StorageDriverGUID   = ocaf.MustGUID("13a56820-8269-11d5-aab2-0050044b1af1")
	RetrievalDriverGUID = ocaf.MustGUID("13a56822-8269-11d5-aab2-0050044b1af1")
)

// Registry builds driver singletons by identifier on first request
type Registry struct {
	builders map[ocaf.GUID]func() any
	built    sync.Map
	group    singleflight.Group
}

func NewRegistry(builders map[ocaf.GUID]func() any) *Registry {
	return &Registry{builders: builders}
}

// Get returns the driver registered under id; nil, false for unknown identifiers
func (r *Registry) Get(id ocaf.GUID) (any, bool) {
	if v, ok := r.built.Load(id); ok {
		return v, true
	}
	build, ok := r.builders[id]
	if !ok {
		return nil, false
	}
	v, _, _ := r.group.Do(id.String(), func() (any, error) {
		if v, ok := r.built.Load(id); ok {
			return v, nil
		}
		v := build()
		r.built.Store(id, v)
		return v, nil
	})
	return v, true
}

var registry = NewRegistry(map[ocaf.GUID]func() any{
	StorageDriverGUID:   func() any { return NewDocumentStorageDriver(FormatName, nil) },
	RetrievalDriverGUID: func() any { return NewDocumentRetrievalDriver(FormatName, nil) },
})

// Factory returns the lite storage or retrieval driver
func Factory(id ocaf.GUID) (any, bool) {
	return registry.Get(id)
}

// DefineFormat registers the lite format
func DefineFormat(a *app.Application) {
	a.DefineFormat(app.Format{
		Name: FormatName,
		NewStorage: func() app.StorageDriver {
			d, _ := Factory(StorageDriverGUID)
			return d.(*DocumentStorageDriver)
		},
		NewRetrieval: func() app.RetrievalDriver {
			d, _ := Factory(RetrievalDriverGUID)
			return d.(*DocumentRetrievalDriver)
		},
	})
}
