// Package poller drives the fetch, extract, admit and notify cycle against a
// live commentary page.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lolwierd/cric-commentary/internal/extract"
	"github.com/lolwierd/cric-commentary/internal/fetch"
	"github.com/lolwierd/cric-commentary/internal/notify"
	"github.com/lolwierd/cric-commentary/internal/status"
	"github.com/lolwierd/cric-commentary/internal/tracker"
)

var (
	// ErrFetch marks a cycle skipped because the page could not be loaded.
	ErrFetch = errors.New("fetch failed")
	// ErrPanic marks a cycle that panicked. Run stops on it.
	ErrPanic = errors.New("poll cycle panicked")
)

// PageFetcher loads the raw page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Dispatcher queues an alert without waiting for delivery.
type Dispatcher interface {
	Dispatch(message string) bool
}

// StateStore persists tracker memory per match URL.
type StateStore interface {
	Load(match string) (tracker.Snapshot, bool, error)
	Save(match string, snap tracker.Snapshot) error
}

// Options wires a Poller. Fetcher, Tracker and Dispatcher are required.
type Options struct {
	URL  string
	Team string

	// MinInterval is the least time between the starts of two fetches.
	// Zero disables the limit.
	MinInterval time.Duration
	// FailureDelay is waited after a failed fetch before the next cycle.
	FailureDelay time.Duration

	Fetcher    PageFetcher
	Tracker    *tracker.Tracker
	Dispatcher Dispatcher
	Board      *status.Board
	Store      StateStore
	Sleep      fetch.SleepFunc
	Now        func() time.Time
}

// Report describes one completed cycle.
type Report struct {
	CycleID       string
	Score         string
	ScoreStrategy string
	RowStrategy   string
	Rows          int
	Events        []tracker.Event
	Notified      *tracker.Event
	Evicted       int
}

type Poller struct {
	url          string
	fetcher      PageFetcher
	scores       *extract.ScoreExtractor
	rows         *extract.CommentaryExtractor
	tracker      *tracker.Tracker
	dispatcher   Dispatcher
	board        *status.Board
	store        StateStore
	limiter      *rate.Limiter
	failureDelay time.Duration
	sleep        fetch.SleepFunc
	now          func() time.Time
	logger       *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Poller {
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	if opts.Sleep == nil {
		opts.Sleep = fetch.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Board == nil {
		opts.Board = status.NewBoard(opts.URL, opts.Team)
	}
	return &Poller{
		url:          opts.URL,
		fetcher:      opts.Fetcher,
		scores:       extract.NewScoreExtractor(opts.Team),
		rows:         extract.NewCommentaryExtractor(),
		tracker:      opts.Tracker,
		dispatcher:   opts.Dispatcher,
		board:        opts.Board,
		store:        opts.Store,
		limiter:      rate.NewLimiter(limit, 1),
		failureDelay: opts.FailureDelay,
		sleep:        opts.Sleep,
		now:          opts.Now,
		logger:       logger.Named("poller"),
	}
}

// Board returns the status board the poller writes to.
func (p *Poller) Board() *status.Board {
	return p.board
}

// Restore loads saved tracker memory for this match, if a store is set.
func (p *Poller) Restore() (bool, error) {
	if p.store == nil {
		return false, nil
	}
	snap, ok, err := p.store.Load(p.url)
	if err != nil {
		return false, fmt.Errorf("loading tracker state: %w", err)
	}
	if !ok {
		return false, nil
	}
	p.tracker.Restore(snap)
	p.logger.Info("restored tracker state",
		zap.Int("keys", p.tracker.Len()),
		zap.Float64("high_watermark", p.tracker.HighWatermark()),
	)
	return true, nil
}

// Run polls until ctx is cancelled, returning nil, or until a cycle panics,
// returning an error wrapping ErrPanic.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting commentary poller", zap.String("url", p.url))
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return nil
		}

		_, err := p.safeCycle(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrPanic):
			return err
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrFetch):
			p.logger.Warn("fetch failed", zap.Error(err), zap.Duration("retry_in", p.failureDelay))
			if err := p.sleep(ctx, p.failureDelay); err != nil {
				return nil
			}
		default:
			return err
		}
	}
}

func (p *Poller) safeCycle(ctx context.Context) (report Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered from panic in poll cycle",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return p.RunCycle(ctx)
}

// RunCycle performs one fetch and processes it. A fetch failure returns an
// error wrapping ErrFetch and leaves the tracker untouched.
func (p *Poller) RunCycle(ctx context.Context) (Report, error) {
	report := Report{CycleID: uuid.NewString()}
	log := p.logger.With(zap.String("cycle_id", report.CycleID))

	log.Info("fetching page content")
	raw, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		p.board.RecordFetchError(p.now(), err)
		return report, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	doc, err := extract.Parse(raw)
	if err != nil {
		p.board.RecordFetchError(p.now(), err)
		return report, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	report.Score, report.ScoreStrategy = p.scores.ExtractWith(doc)
	rows, rowStrategy := p.rows.ExtractWith(doc)
	report.Rows = len(rows)
	report.RowStrategy = rowStrategy
	log.Debug("extracted page",
		zap.String("score", report.Score),
		zap.String("score_strategy", report.ScoreStrategy),
		zap.Int("rows", len(rows)),
		zap.String("row_strategy", rowStrategy),
	)

	report.Events = p.tracker.Admit(rows, report.Score)
	for _, ev := range report.Events {
		log.Info("new commentary",
			zap.String("over", ev.PositionText),
			zap.String("commentary", ev.Text),
			zap.String("score", ev.Score),
			zap.Stringer("result", ev.Result),
		)
	}
	if len(report.Events) == 0 {
		log.Info("no new commentary found, waiting for updates")
	}

	if ev, ok := p.tracker.NextNotification(report.Events); ok {
		message := notify.FormatMessage(ev)
		report.Notified = &ev
		p.board.RecordNotification(ev, message)
		if !p.dispatcher.Dispatch(message) {
			log.Warn("notification dropped", zap.String("over", ev.PositionText))
		}
	}

	report.Evicted = p.tracker.Compact()
	if report.Evicted > 0 {
		log.Debug("compacted seen keys", zap.Int("evicted", report.Evicted), zap.Int("kept", p.tracker.Len()))
	}

	p.board.RecordCycle(p.now(), report.Score, report.Events)
	p.persist(log, report)
	return report, nil
}

func (p *Poller) persist(log *zap.Logger, report Report) {
	if p.store == nil || (len(report.Events) == 0 && report.Evicted == 0) {
		return
	}
	if err := p.store.Save(p.url, p.tracker.Snapshot()); err != nil {
		log.Error("failed to save tracker state", zap.Error(err))
	}
}
