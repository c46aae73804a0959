package roundtrip

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
)

const (
	StoreState  = "store"
	FetchState  = "fetch"
	RemoveState = "remove"
)

// Service the document service under check, *client.GRPCClient in production
type Service interface {
	Store(ctx context.Context, xml []byte) (string, int, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
	Remove(ctx context.Context, id string) error
}

type CheckerOptions struct {
	Format     string
	WithShapes bool
	Seed       int64
	GoCount    uint
	// Keep leaves the documents in the service
	Keep bool
}

// NewChecker wires store -> fetch (compared with the generated document) -> remove
func NewChecker(svc Service, a *app.Application, opts CheckerOptions, logger *zap.Logger) (*StateSupervisor, error) {
	if _, ok := a.Format(opts.Format); !ok {
		return nil, fmt.Errorf("%w: %s", app.ErrUnknownFormat, opts.Format)
	}
	msg := message.NewZapDriver(logger)
	sv := NewStateSupervisor(logger)

	store := NewState(StoreState, opts.GoCount, logger)
	store.SetDoFunc(func(ctx context.Context, s Sample) (Sample, error) {
		var buf bytes.Buffer
		if err := a.Encode(s.Doc, &buf, msg); err != nil {
			return s, err
		}
		id, warnings, err := svc.Store(ctx, buf.Bytes())
		if err != nil {
			return s, err
		}
		if warnings > 0 {
			return s, fmt.Errorf("server reported %d warnings", warnings)
		}
		s.ID, s.XML = id, buf.Bytes()
		s.NextState = FetchState
		return s, nil
	})

	fetch := NewState(FetchState, opts.GoCount, logger)
	fetch.SetDoFunc(func(ctx context.Context, s Sample) (Sample, error) {
		xml, err := svc.Fetch(ctx, s.ID)
		if err != nil {
			return s, err
		}
		s.Fetched, err = a.Decode(xml, opts.Format, msg)
		if err != nil {
			return s, err
		}
		s.NextState = RemoveState
		if opts.Keep {
			s.NextState = ""
		}
		return s, nil
	})
	fetch.SetCheckFunc(func(before, after Sample) error {
		return Compare(after.Doc, after.Fetched)
	})

	remove := NewState(RemoveState, opts.GoCount, logger)
	remove.SetDoFunc(func(ctx context.Context, s Sample) (Sample, error) {
		if err := svc.Remove(ctx, s.ID); err != nil {
			return s, err
		}
		s.NextState = ""
		return s, nil
	})

	for _, s := range []*State{store, fetch, remove} {
		if err := sv.Add(s); err != nil {
			return nil, err
		}
	}

	gen := NewGenerator(opts.Seed, opts.Format, opts.WithShapes)
	var mu sync.Mutex
	sv.SetSourceFunc(func(ctx context.Context) (Sample, error) {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		mu.Lock()
		defer mu.Unlock()
		return Sample{Doc: gen.Document(), NextState: StoreState}, nil
	})
	return sv, nil
}
