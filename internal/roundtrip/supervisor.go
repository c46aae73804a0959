// Package roundtrip staged pipelines pushing generated documents through a document service
package roundtrip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
)

var (
	ErrNotInitialized = errors.New("not initialized")
	ErrUnknownState   = errors.New("unknown state")
)

// Sample one document travelling through the states
type Sample struct {
	Seq       int
	NextState string

	Doc     *ocaf.Document
	ID      string
	XML     []byte
	Fetched *ocaf.Document
}

func (s Sample) String() string {
	return fmt.Sprintf("#%d id=%s -> (%s)", s.Seq, s.ID, s.NextState)
}

type DoFunc func(context.Context, Sample) (Sample, error)
type CheckFunc func(before, after Sample) error
type SourceFunc func(context.Context) (Sample, error)

type State struct {
	Id      string
	GoCount uint

	doFunc    DoFunc
	checkFunc CheckFunc
	inChan    chan Sample

	sugar *zap.SugaredLogger
}

func NewState(id string, goCount uint, logger *zap.Logger) *State {
	if goCount == 0 {
		goCount = 1
	}
	return &State{
		Id:      id,
		GoCount: goCount,
		sugar:   logger.Sugar(),
		inChan:  make(chan Sample, goCount),
	}
}

func (s *State) String() string {
	return fmt.Sprintf("%s goroutines=%d", s.Id, s.GoCount)
}

func (s *State) SetDoFunc(f DoFunc) {
	s.doFunc = f
}

func (s *State) SetCheckFunc(f CheckFunc) {
	s.checkFunc = f
}

// Stats counters of one run
type Stats struct {
	Produced   int64
	Completed  int64
	Failed     int64
	Mismatched int64
}

func (s Stats) String() string {
	return fmt.Sprintf("produced=%d completed=%d failed=%d mismatched=%d", s.Produced, s.Completed, s.Failed, s.Mismatched)
}

type counters struct {
	produced, completed, failed, mismatched atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Produced:   c.produced.Load(),
		Completed:  c.completed.Load(),
		Failed:     c.failed.Load(),
		Mismatched: c.mismatched.Load(),
	}
}

// tracker closes done once the source stopped and every produced sample left the pipeline
type tracker struct {
	mu         sync.Mutex
	pending    int
	sourceDone bool
	closed     bool
	done       chan struct{}
}

func (t *tracker) add() {
	t.mu.Lock()
	t.pending++
	t.mu.Unlock()
}

func (t *tracker) finish() {
	t.mu.Lock()
	t.pending--
	t.check()
	t.mu.Unlock()
}

func (t *tracker) sourceFinished() {
	t.mu.Lock()
	t.sourceDone = true
	t.check()
	t.mu.Unlock()
}

func (t *tracker) check() {
	if t.sourceDone && t.pending == 0 && !t.closed {
		t.closed = true
		close(t.done)
	}
}

type StateSupervisor struct {
	mu sync.RWMutex

	states     map[string]*State
	sourceFunc SourceFunc
	first      string

	sugar *zap.SugaredLogger
}

func NewStateSupervisor(logger *zap.Logger) *StateSupervisor {
	return &StateSupervisor{
		sugar:  logger.Sugar(),
		states: make(map[string]*State),
	}
}

// Add registers a state, the first one added receives the samples of the source
func (sv *StateSupervisor) Add(s *State) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if s == nil {
		return errors.New("input param is nil")
	}
	if sv.first == "" {
		sv.first = s.Id
	}
	sv.states[s.Id] = s
	sv.sugar.Debugf("added %v", s)
	return nil
}

func (sv *StateSupervisor) SetSourceFunc(f SourceFunc) {
	sv.sourceFunc = f
}

// Run pushes samples through the states; samples == 0 runs until ctx is done
func (sv *StateSupervisor) Run(ctx context.Context, samples int) (Stats, error) {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	var cnt counters
	if sv.sourceFunc == nil || len(sv.states) == 0 {
		return cnt.snapshot(), ErrNotInitialized
	}
	for id, state := range sv.states {
		if state.doFunc == nil {
			return cnt.snapshot(), fmt.Errorf("%w: state %s has no doFunc", ErrNotInitialized, id)
		}
	}
	sv.sugar.Infow("starting", "states", len(sv.states), "samples", samples)

	workCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(workCtx)
	tr := &tracker{done: make(chan struct{})}

	for _, state := range sv.states {
		state := state
		for i := uint(0); i < state.GoCount; i++ {
			g.Go(func() error {
				return sv.job(gctx, state, tr, &cnt)
			})
		}
	}

	g.Go(func() error {
		defer tr.sourceFinished()
		for i := 0; samples == 0 || i < samples; i++ {
			s, err := sv.sourceFunc(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("source: %w", err)
			}
			s.Seq = i
			if s.NextState == "" {
				s.NextState = sv.first
			}
			cnt.produced.Add(1)
			tr.add()
			if err := sv.route(gctx, s, tr, &cnt); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-tr.done:
			stop()
		case <-gctx.Done():
		}
		return nil
	})

	err := g.Wait()
	stats := cnt.snapshot()
	sv.sugar.Infow("finished", "stats", stats.String())
	if err != nil {
		return stats, err
	}
	if samples > 0 && ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

func (sv *StateSupervisor) job(ctx context.Context, s *State, tr *tracker, cnt *counters) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case before := <-s.inChan:
			after, err := s.doFunc(ctx, before)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				sv.sugar.Debugw("doFunc", "state", s.Id, "sample", before.String(), "err", err)
				cnt.failed.Add(1)
				tr.finish()
				continue
			}
			if s.checkFunc != nil {
				if err := s.checkFunc(before, after); err != nil {
					sv.sugar.Warnw("checkFunc", "state", s.Id, "sample", before.String(), "err", err)
					cnt.mismatched.Add(1)
					tr.finish()
					continue
				}
			}
			if err := sv.route(ctx, after, tr, cnt); err != nil {
				return err
			}
		}
	}
}

func (sv *StateSupervisor) route(ctx context.Context, s Sample, tr *tracker, cnt *counters) error {
	if s.NextState == "" {
		cnt.completed.Add(1)
		tr.finish()
		return nil
	}
	state, ok := sv.states[s.NextState]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, s.NextState)
	}
	select {
	case state.inChan <- s:
	case <-ctx.Done():
	}
	return nil
}
