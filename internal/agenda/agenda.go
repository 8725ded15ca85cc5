// Package agenda lists the owner's upcoming external calendar entries.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/ics"
	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

// ErrUnavailable is returned when no feed could be read.
var ErrUnavailable = errors.New("agenda: calendar unavailable")

// Fetcher is the part of ics.Fetcher the service needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.Feed, []error)
}

// Listing is one computed agenda.
type Listing struct {
	Occurrences []model.Occurrence `json:"events"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	Timezone    string             `json:"timezone"`
	Truncated   []string           `json:"truncated_uids,omitempty"`
}

type cached struct {
	listing Listing
	at      time.Time
}

// Service computes the listing for [now, now+horizon) and keeps it for a
// short TTL. Refresh recomputes it regardless of age.
type Service struct {
	fetcher Fetcher
	sources []ics.Source
	loc     *time.Location
	horizon int
	ttl     time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	last *cached

	// serializes recomputation so concurrent misses fetch once
	refreshMu sync.Mutex
}

func NewService(f Fetcher, cfg config.CalendarConfig, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	return &Service{
		fetcher: f,
		sources: ics.SourcesFromConfig(cfg.ICS),
		loc:     loc,
		horizon: horizon,
		ttl:     time.Duration(cfg.CacheTTLSeconds) * time.Second,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Upcoming returns the cached listing while fresh, otherwise recomputes.
func (s *Service) Upcoming(ctx context.Context) (Listing, error) {
	if l, ok := s.fresh(); ok {
		return l, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if l, ok := s.fresh(); ok {
		return l, nil
	}
	return s.compute(ctx)
}

// Refresh recomputes the listing. It is the cron entry point.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	_, err := s.compute(ctx)
	return err
}

func (s *Service) fresh() (Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil || s.ttl <= 0 || s.now().Sub(s.last.at) >= s.ttl {
		return Listing{}, false
	}
	return s.last.listing, true
}

// compute runs fetch, parse and expand. Caller holds refreshMu.
func (s *Service) compute(ctx context.Context) (Listing, error) {
	now := s.now().In(s.loc)
	listing := Listing{
		Occurrences: []model.Occurrence{},
		From:        now,
		To:          now.AddDate(0, 0, s.horizon),
		Timezone:    s.loc.String(),
	}
	if len(s.sources) == 0 {
		s.store(listing)
		return listing, nil
	}

	feeds, errs := s.fetcher.FetchAll(ctx, s.sources)
	if len(feeds) == 0 {
		return Listing{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}

	var parsed []ics.VEvent
	readable := 0
	for _, f := range feeds {
		evs, err := ics.ParseICS(f.Source, f.Body)
		if err != nil {
			appLog.Error("agenda: parse failed", err, "id", f.Source.ID)
			errs = append(errs, err)
			continue
		}
		readable++
		parsed = append(parsed, evs...)
	}
	if readable == 0 {
		return Listing{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}

	res, err := ics.ExpandOccurrences(parsed, ics.Window{From: listing.From, To: listing.To, Location: s.loc})
	if err != nil {
		return Listing{}, fmt.Errorf("agenda: expand: %w", err)
	}
	if res.Occurrences != nil {
		listing.Occurrences = res.Occurrences
	}
	listing.Truncated = res.Truncated

	if len(errs) > 0 {
		appLog.Warn("agenda: partial refresh", "failed", len(errs), "ok", readable)
	}
	appLog.Info("agenda refreshed", "events", len(listing.Occurrences), "sources", len(s.sources))
	s.store(listing)
	return listing, nil
}

func (s *Service) store(l Listing) {
	s.mu.Lock()
	s.last = &cached{listing: l, at: s.now()}
	s.mu.Unlock()
}
