package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bidacafe/terminal/internal/domain"
)

// SessionClient is the slice of the backend API the poller needs.
type SessionClient interface {
	ListTables(ctx context.Context) ([]domain.Table, error)
	// TableSession returns (nil, nil) when the table has no open session.
	TableSession(ctx context.Context, tableID int64) (*domain.TableSession, error)
}

// Snapshot is one complete fetch of the floor state. Seq increases with each
// fetch that was started, so a slow response can be recognized as stale and
// dropped instead of overwriting fresher data.
type Snapshot struct {
	Seq       int64
	Tables    []domain.Table
	Sessions  map[int64]*domain.TableSession
	FetchedAt time.Time
}

// Poller keeps the floor snapshot warm on one ticker and recomputes the
// derived projections on a faster one, so elapsed clocks advance every second
// even between backend fetches.
type Poller struct {
	client          SessionClient
	logger          *zap.Logger
	refreshInterval time.Duration
	tickInterval    time.Duration
	now             func() time.Time

	mu           sync.RWMutex
	snapshot     Snapshot
	projections  []domain.LiveSessionProjection
	lastErr      error
	nextSeq      int64
	publishedSeq int64
}

func NewPoller(client SessionClient, refreshInterval, tickInterval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		client:          client,
		logger:          logger.Named("board"),
		refreshInterval: refreshInterval,
		tickInterval:    tickInterval,
		now:             time.Now,
	}
}

// Run drives the two tickers until ctx is cancelled. Refreshes run in their
// own goroutine so a slow backend never stalls the projection clock.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	refresh := time.NewTicker(p.refreshInterval)
	defer refresh.Stop()
	tick := time.NewTicker(p.tickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			go p.Refresh(ctx)
		case <-tick.C:
			p.reproject()
		}
	}
}

// Refresh fetches the table list and fans out one session lookup per table.
// A table with no open session contributes a nil entry; any other failure
// abandons the whole fetch and keeps the previous snapshot on screen.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.Lock()
	p.nextSeq++
	seq := p.nextSeq
	p.mu.Unlock()

	tables, err := p.client.ListTables(ctx)
	if err != nil {
		p.recordError(err)
		return
	}

	sessions := make(map[int64]*domain.TableSession, len(tables))
	var sessionsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range tables {
		tableID := table.ID
		g.Go(func() error {
			session, err := p.client.TableSession(gctx, tableID)
			if err != nil {
				return err
			}
			sessionsMu.Lock()
			sessions[tableID] = session
			sessionsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.recordError(err)
		return
	}

	p.publish(Snapshot{
		Seq:       seq,
		Tables:    tables,
		Sessions:  sessions,
		FetchedAt: p.now(),
	})
}

func (p *Poller) publish(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Seq <= p.publishedSeq {
		p.logger.Debug("dropping stale snapshot",
			zap.Int64("seq", snap.Seq),
			zap.Int64("published", p.publishedSeq))
		return
	}
	p.publishedSeq = snap.Seq
	p.snapshot = snap
	p.lastErr = nil
	p.projections = p.projectLocked(p.now())
}

func (p *Poller) reproject() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.snapshot.Tables == nil {
		return
	}
	p.projections = p.projectLocked(p.now())
}

func (p *Poller) projectLocked(now time.Time) []domain.LiveSessionProjection {
	out := make([]domain.LiveSessionProjection, 0, len(p.snapshot.Tables))
	for _, table := range p.snapshot.Tables {
		out = append(out, Project(table, p.snapshot.Sessions[table.ID], now))
	}
	return out
}

func (p *Poller) recordError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	p.logger.Warn("board refresh failed", zap.Error(err))
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Projections returns a copy of the latest per-table tiles.
func (p *Poller) Projections() []domain.LiveSessionProjection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.LiveSessionProjection, len(p.projections))
	copy(out, p.projections)
	return out
}

// LastError reports the most recent failed refresh, cleared by the next
// successful one.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}
