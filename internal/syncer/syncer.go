// Package syncer drives one incremental sync run: fetch indicator pages newer
// than the stored marker, append them to the sink and advance the marker
// after each page.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/syntrixbase/intelsync/internal/feed"
	"github.com/syntrixbase/intelsync/internal/marker"
	"github.com/syntrixbase/intelsync/internal/sink"
	"github.com/syntrixbase/intelsync/internal/syncer/config"
	"github.com/syntrixbase/intelsync/internal/syncer/metrics"
)

// ErrOutOfOrder indicates a page whose markers are not strictly ascending
// or do not start past the current marker.
var ErrOutOfOrder = errors.New("indicator page out of marker order")

// State is a sync run state.
type State int

const (
	StateInit State = iota
	StateFetching
	StateSinking
	StateAdvancing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateFetching:
		return "FETCHING"
	case StateSinking:
		return "SINKING"
	case StateAdvancing:
		return "ADVANCING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Feed is the page source used by the loop.
type Feed interface {
	Query(ctx context.Context, params feed.QueryParams) (feed.Page, error)
	Next(ctx context.Context, cursor string) (feed.Page, error)
}

// Result summarizes a run.
type Result struct {
	RunID       string
	State       State
	Pages       int
	Fetched     int
	Ingested    int
	Duplicates  int
	StartMarker string
	Marker      string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Options configures a Syncer.
type Options struct {
	// Stream labels metrics and logs. Defaults to "indicators".
	Stream string

	// Query holds the static query parameters. The marker filter is derived
	// per fetch.
	Query feed.QueryParams

	Config config.Config
	Logger *slog.Logger
}

// Syncer runs the sync loop over one marker stream. A Syncer is not safe
// for concurrent runs.
type Syncer struct {
	feed    Feed
	sink    sink.Sink
	markers marker.Store
	query   feed.QueryParams
	cfg     config.Config
	stream  string
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Syncer.
func New(f Feed, s sink.Sink, m marker.Store, opts Options) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stream := opts.Stream
	if stream == "" {
		stream = "indicators"
	}
	return &Syncer{
		feed:    f,
		sink:    s,
		markers: m,
		query:   opts.Query,
		cfg:     opts.Config,
		stream:  stream,
		logger:  logger.With("component", "syncer", "stream", stream),
		now:     time.Now,
	}
}

// Run executes one run from INIT to DONE or FAILED. On failure the returned
// Result reflects progress made before the error and the marker is left at
// the last fully sunk page.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:     uuid.NewString(),
		State:     StateInit,
		StartedAt: s.now(),
	}
	logger := s.logger.With("run_id", res.RunID)

	current, err := s.markers.Read(ctx)
	if err != nil {
		return s.fail(logger, &res, fmt.Errorf("read marker: %w", err))
	}
	res.StartMarker = current
	res.Marker = current
	logger.Info("sync run started", "marker", current)

	params := s.query.WithMarker(current)
	cursor := ""

	for {
		if s.cfg.MaxPages > 0 && res.Pages >= s.cfg.MaxPages {
			logger.Info("page limit reached", "max_pages", s.cfg.MaxPages)
			return s.done(logger, &res)
		}
		if err := ctx.Err(); err != nil {
			return s.fail(logger, &res, err)
		}

		s.transition(logger, &res, StateFetching)
		page, err := s.fetch(ctx, params, cursor)
		if err != nil {
			return s.fail(logger, &res, err)
		}
		res.Pages++
		res.Fetched += len(page.Records)
		metrics.PagesFetched.WithLabelValues(s.stream).Inc()

		if len(page.Records) == 0 {
			return s.done(logger, &res)
		}

		if !s.cfg.SkipOrderCheck {
			if err := checkOrder(current, page.Records); err != nil {
				return s.fail(logger, &res, err)
			}
		}

		// A fetched page is sunk and committed even if ctx is cancelled
		// meanwhile.
		pageCtx := context.WithoutCancel(ctx)

		s.transition(logger, &res, StateSinking)
		for _, ind := range page.Records {
			err := s.sink.Append(pageCtx, ind)
			switch {
			case err == nil:
				res.Ingested++
				metrics.IndicatorsIngested.WithLabelValues(s.stream).Inc()
			case errors.Is(err, sink.ErrDuplicate):
				res.Duplicates++
				metrics.IndicatorsDuplicate.WithLabelValues(s.stream).Inc()
				logger.Debug("indicator already stored", "id", ind.ID)
			default:
				return s.fail(logger, &res, fmt.Errorf("append indicator %s: %w", ind.ID, err))
			}
		}

		s.transition(logger, &res, StateAdvancing)
		next := page.Records[len(page.Records)-1].Marker
		if err := s.markers.Advance(pageCtx, next); err != nil {
			return s.fail(logger, &res, fmt.Errorf("advance marker to %s: %w", next, err))
		}
		metrics.MarkerAdvances.WithLabelValues(s.stream).Inc()
		logger.Info("marker advanced", "marker", next, "records", len(page.Records))

		current = next
		res.Marker = next
		params = s.query.WithMarker(current)
		cursor = page.NextCursor
	}
}

func (s *Syncer) fetch(ctx context.Context, params feed.QueryParams, cursor string) (feed.Page, error) {
	start := s.now()
	defer func() {
		metrics.FetchLatency.WithLabelValues(s.stream).Observe(time.Since(start).Seconds())
	}()
	if cursor != "" {
		return s.feed.Next(ctx, cursor)
	}
	return s.feed.Query(ctx, params)
}

func (s *Syncer) transition(logger *slog.Logger, res *Result, to State) {
	logger.Debug("state transition", "from", res.State.String(), "to", to.String())
	res.State = to
}

func (s *Syncer) done(logger *slog.Logger, res *Result) (Result, error) {
	s.transition(logger, res, StateDone)
	res.FinishedAt = s.now()
	metrics.Runs.WithLabelValues(s.stream, StateDone.String()).Inc()
	metrics.LastSuccess.WithLabelValues(s.stream).Set(float64(res.FinishedAt.Unix()))
	logger.Info("sync run finished",
		"pages", res.Pages,
		"fetched", res.Fetched,
		"ingested", res.Ingested,
		"duplicates", res.Duplicates,
		"marker", res.Marker,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return *res, nil
}

func (s *Syncer) fail(logger *slog.Logger, res *Result, err error) (Result, error) {
	failedIn := res.State
	s.transition(logger, res, StateFailed)
	res.FinishedAt = s.now()
	kind := ErrorKind(err)
	metrics.Runs.WithLabelValues(s.stream, StateFailed.String()).Inc()
	metrics.RunFailures.WithLabelValues(s.stream, kind).Inc()
	logger.Error("sync run failed",
		"state", failedIn.String(),
		"kind", kind,
		"marker", res.Marker,
		"ingested", res.Ingested,
		"error", err,
	)
	return *res, err
}

// checkOrder verifies that markers strictly ascend and start past current.
func checkOrder(current string, records []feed.Indicator) error {
	prev := current
	for i, ind := range records {
		if (i > 0 || prev != "") && marker.Compare(ind.Marker, prev) <= 0 {
			return fmt.Errorf("%w: indicator %s marker %q not after %q", ErrOutOfOrder, ind.ID, ind.Marker, prev)
		}
		prev = ind.Marker
	}
	return nil
}
