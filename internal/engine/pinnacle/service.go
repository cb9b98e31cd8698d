package pinnacle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fortuna/oddspipeline/internal/platform/logx"
)

const bookmakerLabel = "Pinnacle"

// Dedup is the narrow slice of dedup.Checker the poll cycle needs:
// suppress a sink call when nothing about an open period changed since
// the last poll (§5 "per-message handlers ... a slow downstream write
// never blocks ingestion" — avoiding redundant writes keeps the
// pipeline's steady-state write volume proportional to actual line
// movement, not the 1Hz poll rate).
type Dedup interface {
	Changed(ctx context.Context, key, content string) (bool, error)
}

// ExistingChecker is the narrow slice of the persistence Store the
// poll cycle needs: a single batched existing-row lookup per cycle
// rather than one query per event (grounded on the original's combined
// pre-fetch query).
type ExistingChecker interface {
	BatchExistingOdds(ctx context.Context, fixtureIDs []int64, bookmaker string) (map[int64]bool, error)
}

// FixtureResolver is the opaque, out-of-scope fixture-matching
// collaborator (§1 Non-goals): resolve_fixture(event) -> fixture_id?.
type FixtureResolver func(eventID int64) (fixtureID int64, ok bool)

// OddsSink receives one period's worth of odds for a resolved fixture.
// closed is true when the period is no longer open and the period
// passed is a zeroed one (market-closure zeroing, mirroring Monaco's).
type OddsSink func(fixtureID int64, period Period, closed bool)

// Service runs the fixed 1Hz Pinnacle poll loop.
type Service struct {
	client       *Client
	existing     ExistingChecker
	resolve      FixtureResolver
	sink         OddsSink
	knownLeagues map[int64]bool
	dedup        Dedup
	log          *logx.Logger
}

// SetDedup installs a content-change checker; a nil checker (the
// default) emits on every poll cycle with no suppression.
func (s *Service) SetDedup(d Dedup) {
	s.dedup = d
}

// NewService returns a Service that only polls events whose league id
// is in knownLeagues (loaded once at startup).
func NewService(client *Client, existing ExistingChecker, resolve FixtureResolver, sink OddsSink, knownLeagues map[int64]bool) *Service {
	return &Service{
		client:       client,
		existing:     existing,
		resolve:      resolve,
		sink:         sink,
		knownLeagues: knownLeagues,
		log:          logx.New("pinnacle"),
	}
}

// Run polls once per second until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.processCycle(ctx); err != nil {
				s.log.Warnf("poll cycle failed: %v", err)
			}
		}
	}
}

func (s *Service) processCycle(ctx context.Context) error {
	events, err := s.client.FetchOdds(ctx)
	if err != nil {
		return err
	}

	type resolvedEvent struct {
		event     Event
		fixtureID int64
	}
	var resolved []resolvedEvent
	var fixtureIDs []int64

	for _, ev := range events {
		if len(s.knownLeagues) > 0 && !s.knownLeagues[ev.LeagueID] {
			continue
		}
		fixtureID, ok := s.resolve(ev.ID)
		if !ok {
			continue // mapping miss: dropped silently, next refresh may map it
		}
		resolved = append(resolved, resolvedEvent{event: ev, fixtureID: fixtureID})
		fixtureIDs = append(fixtureIDs, fixtureID)
	}

	existingMap, err := s.existing.BatchExistingOdds(ctx, fixtureIDs, bookmakerLabel)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, r := range resolved {
		period, ok := findPeriod(r.event, 0)
		if !ok {
			continue
		}

		isOpen := s.isMarketOpen(period, now)
		if isOpen {
			if s.dedup != nil {
				changed, err := s.dedup.Changed(ctx, dedupKey(r.fixtureID), periodContent(period))
				if err != nil {
					s.log.Warnf("dedup check failed for fixture %d: %v", r.fixtureID, err)
				} else if !changed {
					continue
				}
			}
			s.sink(r.fixtureID, period, false)
			continue
		}

		if existingMap[r.fixtureID] {
			s.sink(r.fixtureID, zeroPeriod(period), true)
		}
		// else: never had odds, nothing to zero
	}
	return nil
}

func dedupKey(fixtureID int64) string {
	return fmt.Sprintf("pinnacle:odds:%d", fixtureID)
}

// periodContent renders the fields a downstream write would actually
// change into a comparable string; Status/CutoffTime/Meta are excluded
// since they don't affect the projected odds.
func periodContent(p Period) string {
	s := fmt.Sprintf("ml:%v;", p.MoneyLine)
	for _, sp := range p.Spreads {
		s += fmt.Sprintf("sp:%v/%v/%v;", sp.Hdp, sp.Home, sp.Away)
	}
	for _, t := range p.Totals {
		s += fmt.Sprintf("tt:%v/%v/%v;", t.Points, t.Over, t.Under)
	}
	return s
}

func (s *Service) isMarketOpen(p Period, now time.Time) bool {
	hasOdds := p.MoneyLine != nil || len(p.Spreads) > 0 || len(p.Totals) > 0
	cutoffInFuture := cutoffAfter(p.CutoffTime, now)
	metaOpen := p.Meta.OpenMoneyLine || p.Meta.OpenSpreads || p.Meta.OpenTotals
	return p.Status == 1 && hasOdds && cutoffInFuture && metaOpen
}

// cutoffAfter parses Pinnacle's naive datetime format as UTC and
// reports whether it is still in the future relative to now.
func cutoffAfter(cutoff string, now time.Time) bool {
	if cutoff == "" {
		return true
	}
	t, err := time.Parse("2006-01-02T15:04:05", cutoff)
	if err != nil {
		return true
	}
	return t.After(now)
}

func findPeriod(ev Event, number int) (Period, bool) {
	for _, p := range ev.Periods {
		if p.Number == number {
			return p, true
		}
	}
	return Period{}, false
}

// zeroPeriod returns a clone of p with every price zeroed and every
// meta open-flag cleared, mirroring Monaco's market-zeroing behavior
// for a venue with no push-based status channel.
func zeroPeriod(p Period) Period {
	zero := Period{Number: p.Number, Status: p.Status, CutoffTime: p.CutoffTime}
	if p.MoneyLine != nil {
		z := 0.0
		zero.MoneyLine = &MoneyLine{Home: &z, Draw: &z, Away: &z}
	}
	for _, sp := range p.Spreads {
		zero.Spreads = append(zero.Spreads, Spread{Hdp: sp.Hdp, Home: 0, Away: 0})
	}
	for _, t := range p.Totals {
		zero.Totals = append(zero.Totals, Total{Points: t.Points, Over: 0, Under: 0})
	}
	zero.Meta = PeriodMeta{}
	return zero
}

// LeaguesFromEnv parses a comma-separated league id list from an
// environment value into the known-league set the service filters on.
func LeaguesFromEnv(raw string) map[int64]bool {
	out := make(map[int64]bool)
	if raw == "" {
		return out
	}
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			tok := raw[start:i]
			if id, err := strconv.ParseInt(tok, 10, 64); err == nil {
				out[id] = true
			}
			start = i + 1
		}
	}
	return out
}
