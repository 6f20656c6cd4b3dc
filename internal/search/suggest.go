package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// suggester runs one autocomplete field: a 200 ms debounce over the input,
// a minimum input length below which the list is cleared without a network
// call, and single-flight fetches whose superseded results are discarded.
// All methods must be called with the owning controller's lock held; the
// apply callback likewise runs under that lock.
type suggester struct {
	c     *Controller
	fetch func(ctx context.Context, partial string) ([]string, error)
	apply func([]string)

	seq    uint64
	timer  *time.Timer
	gen    uint64
	cancel context.CancelFunc
}

func newSuggester(c *Controller, fetch func(context.Context, string) ([]string, error), apply func([]string)) *suggester {
	return &suggester{c: c, fetch: fetch, apply: apply}
}

// scheduleLocked reacts to an input edit. Short input clears the list and
// cancels anything pending; otherwise the debounce timer restarts.
func (s *suggester) scheduleLocked(input string) {
	if len(input) < suggestMinLen {
		s.clearLocked()
		return
	}
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.c.cfg.SuggestDebounce, func() {
		s.c.mu.Lock()
		defer s.c.mu.Unlock()
		if s.c.closed || seq != s.seq {
			return
		}
		s.startFetchLocked(input)
	})
}

// clearLocked empties the list and cancels pending work.
func (s *suggester) clearLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.apply(nil)
}

func (s *suggester) closeLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *suggester) startFetchLocked(input string) {
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.c.cfg.RequestTimeout)
	s.cancel = cancel

	go func() {
		values, err := s.fetch(ctx, input)
		cancel()

		s.c.mu.Lock()
		if s.c.closed || gen != s.gen {
			s.c.mu.Unlock()
			return
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.c.logger.Debug("suggestion fetch failed", zap.Error(err))
				s.apply(nil)
			}
			s.c.mu.Unlock()
			return
		}
		s.apply(values)
		snap := s.c.snapshotLocked()
		s.c.mu.Unlock()
		s.c.notify(snap)
	}()
}
