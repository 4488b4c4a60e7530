package orderbook

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"canonflow/internal/canonical"
	"canonflow/internal/symbols"
	"canonflow/internal/timestamp"
	"canonflow/logger"
)

// SnapshotFetcher is the collaborating transport the engine asks for a fresh
// book when it needs to (re)synchronize.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, exchange, symbol string) (Snapshot, error)
}

// EmitFunc receives canonical records produced by the engine. Implementations
// must not block; the engine may call it while holding its state lock.
type EmitFunc func(canonical.Record)

// ResyncPolicy bounds the snapshot retry behaviour.
type ResyncPolicy struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxFailures int
}

// Options configures a single engine instance.
type Options struct {
	PublishDepth   int
	ChecksumLevels int
	BufferLimit    int
	Resync         ResyncPolicy
}

// Health is the diagnostic surface exposed for external polling.
type Health struct {
	Exchange      string     `json:"exchange"`
	Symbol        string     `json:"symbol"`
	SyncStatus    SyncStatus `json:"sync_status"`
	Desynced      bool       `json:"desynced"`
	LastUpdateID  int64      `json:"last_update_id"`
	LastEventTime string     `json:"last_event_time"`
	BidLevels     int        `json:"bid_levels"`
	AskLevels     int        `json:"ask_levels"`
}

// Engine owns the order-book state for one (exchange, symbol) pair. All
// mutations are serialized through its lock; published records are immutable
// copies, never references into live state.
type Engine struct {
	exchange   string
	instrument string
	symbol     string
	marketType symbols.MarketType

	opts    Options
	fetcher SnapshotFetcher
	emit    EmitFunc
	log     *logger.Log
	ctx     context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	book          Book
	status        SyncStatus
	lastUpdateID  int64
	lastEventTime time.Time
	buffer        []Delta
	resyncing     bool
	failures      int
	desynced      bool
	closed        bool
}

// NewEngine creates an engine in the UNSYNCED state. exchange must already be
// the canonical exchange id; instrument is the raw exchange identifier.
func NewEngine(ctx context.Context, exchange, instrument string, marketType symbols.MarketType, opts Options, fetcher SnapshotFetcher, emit EmitFunc) *Engine {
	engineCtx, cancel := context.WithCancel(ctx)
	if opts.PublishDepth <= 0 {
		opts.PublishDepth = 400
	}
	if opts.ChecksumLevels <= 0 {
		opts.ChecksumLevels = 25
	}
	if opts.BufferLimit <= 0 {
		opts.BufferLimit = 1000
	}
	if opts.Resync.MinDelay <= 0 {
		opts.Resync.MinDelay = 500 * time.Millisecond
	}
	if opts.Resync.MaxDelay < opts.Resync.MinDelay {
		opts.Resync.MaxDelay = 30 * time.Second
	}
	if opts.Resync.MaxFailures <= 0 {
		opts.Resync.MaxFailures = 5
	}
	return &Engine{
		exchange:   exchange,
		instrument: instrument,
		symbol:     symbols.NormalizeSymbol(instrument, exchange),
		marketType: marketType,
		opts:       opts,
		fetcher:    fetcher,
		emit:       emit,
		log:        logger.GetLogger(),
		ctx:        engineCtx,
		cancel:     cancel,
		status:     StatusUnsynced,
	}
}

// ApplySnapshot installs a full book state received from the stream or from a
// resync fetch, moves the engine to SYNCED and replays buffered deltas above
// the snapshot's sequence id.
func (e *Engine) ApplySnapshot(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.applySnapshotLocked(s)
}

// ApplyDelta feeds one incremental update into the state machine.
func (e *Engine) ApplyDelta(d Delta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	switch e.status {
	case StatusUnsynced:
		e.bufferLocked(d)
		e.requestResyncLocked("first delta before any snapshot")
	case StatusSyncing:
		e.bufferLocked(d)
	case StatusSynced:
		if d.LastUpdateID != 0 && d.LastUpdateID <= e.lastUpdateID {
			// Already covered by the current book.
			return
		}
		if !e.followsLocked(d) {
			logger.IncrementSequenceGap()
			e.log.WithComponent("book_engine").WithFields(logger.Fields{
				"exchange":        e.exchange,
				"symbol":          e.symbol,
				"last_update_id":  e.lastUpdateID,
				"prev_update_id":  d.PrevUpdateID,
				"first_update_id": d.FirstUpdateID,
			}).Warn("sequence gap detected, forcing resync")
			e.bufferLocked(d)
			e.requestResyncLocked("sequence gap")
			return
		}
		e.applyDeltaLocked(d)
	}
}

// Close tears the engine down. Safe to call concurrently with in-flight delta
// application; the current mutation completes atomically before state is
// released.
func (e *Engine) Close() {
	e.cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.status = StatusUnsynced
	e.book.Clear()
	e.buffer = nil
}

// Health returns a point-in-time diagnostic snapshot.
func (e *Engine) Health() Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	bidLevels, askLevels := e.book.Depth()
	h := Health{
		Exchange:     e.exchange,
		Symbol:       e.symbol,
		SyncStatus:   e.status,
		Desynced:     e.desynced,
		LastUpdateID: e.lastUpdateID,
		BidLevels:    bidLevels,
		AskLevels:    askLevels,
	}
	if !e.lastEventTime.IsZero() {
		h.LastEventTime = timestamp.Format(e.lastEventTime)
	}
	return h
}

// TopLevels returns copies of at most n levels per side of the current book.
func (e *Engine) TopLevels(n int) ([]canonical.PriceLevel, []canonical.PriceLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Top(n)
}

// Status returns the current sync status.
func (e *Engine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// followsLocked reports whether d chains onto the current book. Exchanges
// either reference the predecessor id directly, provide first/last bounds
// that must cover the next expected id, or count sequences one by one.
func (e *Engine) followsLocked(d Delta) bool {
	if d.PrevUpdateID != 0 {
		return d.PrevUpdateID == e.lastUpdateID
	}
	if d.FirstUpdateID != 0 {
		return d.FirstUpdateID <= e.lastUpdateID+1 && d.LastUpdateID >= e.lastUpdateID
	}
	return d.LastUpdateID == e.lastUpdateID+1
}

func (e *Engine) applyDeltaLocked(d Delta) {
	e.book.Apply(d)
	prev := e.lastUpdateID
	e.lastUpdateID = d.LastUpdateID
	if !d.EventTime.IsZero() {
		e.lastEventTime = d.EventTime
	}

	if d.Checksum != nil {
		bids, asks := e.book.Top(e.opts.ChecksumLevels)
		if got := Checksum(bids, asks, e.opts.ChecksumLevels); got != *d.Checksum {
			logger.IncrementSequenceGap()
			e.log.WithComponent("book_engine").WithFields(logger.Fields{
				"exchange": e.exchange,
				"symbol":   e.symbol,
				"want":     *d.Checksum,
				"got":      got,
			}).Warn("checksum mismatch after delta, forcing resync")
			e.requestResyncLocked("checksum mismatch")
			return
		}
	}

	e.emitDeltaLocked(d, prev)
}

func (e *Engine) applySnapshotLocked(s Snapshot) {
	e.book.Replace(s.Bids, s.Asks)
	e.lastUpdateID = s.LastUpdateID
	if !s.EventTime.IsZero() {
		e.lastEventTime = s.EventTime
	}
	e.status = StatusSynced
	e.failures = 0
	e.desynced = false
	e.emitSnapshotLocked()

	// Replay buffered deltas; anything at or below the snapshot id is stale.
	buffered := e.buffer
	e.buffer = nil
	for i, d := range buffered {
		if d.LastUpdateID != 0 && d.LastUpdateID <= e.lastUpdateID {
			continue
		}
		if !e.followsLocked(d) {
			// The buffered chain itself has a hole; keep the tail and
			// resynchronize again.
			e.buffer = append(e.buffer, buffered[i:]...)
			e.requestResyncLocked("gap in buffered replay")
			return
		}
		e.applyDeltaLocked(d)
		if e.status != StatusSynced {
			return
		}
	}
}

func (e *Engine) bufferLocked(d Delta) {
	if len(e.buffer) >= e.opts.BufferLimit {
		// Keep the newest updates; the oldest are the first to go stale.
		e.buffer = e.buffer[1:]
	}
	e.buffer = append(e.buffer, d)
}

// requestResyncLocked marks the book stale and kicks off a single snapshot
// fetch goroutine. Repeated gaps while a fetch is in flight do not spawn
// additional fetches.
func (e *Engine) requestResyncLocked(reason string) {
	e.status = StatusSyncing
	if e.resyncing || e.fetcher == nil {
		return
	}
	e.resyncing = true
	go e.resyncLoop(reason)
}

func (e *Engine) resyncLoop(reason string) {
	log := e.log.WithComponent("book_engine").WithFields(logger.Fields{
		"exchange": e.exchange,
		"symbol":   e.symbol,
		"reason":   reason,
	})
	log.Info("requesting fresh snapshot")

	b := &backoff.Backoff{
		Min:    e.opts.Resync.MinDelay,
		Max:    e.opts.Resync.MaxDelay,
		Factor: 2,
		Jitter: true,
	}

	for {
		snap, err := e.fetcher.FetchSnapshot(e.ctx, e.exchange, e.instrument)
		if err == nil {
			e.mu.Lock()
			if !e.closed {
				e.resyncing = false
				e.applySnapshotLocked(snap)
			}
			e.mu.Unlock()
			logger.IncrementResync()
			log.Info("book resynchronized")
			return
		}

		e.mu.Lock()
		e.failures++
		failures := e.failures
		if failures >= e.opts.Resync.MaxFailures && !e.desynced {
			e.desynced = true
			log.WithFields(logger.Fields{"failures": failures}).Error("snapshot source unavailable, book desynchronized")
		}
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}

		wait := b.Duration()
		log.WithError(err).WithFields(logger.Fields{
			"failures": failures,
			"retry_in": wait.String(),
		}).Warn("snapshot fetch failed")

		select {
		case <-e.ctx.Done():
			e.mu.Lock()
			e.resyncing = false
			e.mu.Unlock()
			return
		case <-time.After(wait):
		}
	}
}

func (e *Engine) emitSnapshotLocked() {
	if e.emit == nil {
		return
	}
	bids, asks := e.book.Top(e.opts.PublishDepth)
	e.emit(&canonical.OrderBookSnapshot{
		Meta:         e.metaLocked(),
		LastUpdateID: e.lastUpdateID,
		Bids:         bids,
		Asks:         asks,
	})
}

func (e *Engine) emitDeltaLocked(d Delta, prev int64) {
	if e.emit == nil {
		return
	}
	prevID := d.PrevUpdateID
	if prevID == 0 {
		prevID = prev
	}
	e.emit(&canonical.OrderBookDelta{
		Meta:          e.metaLocked(),
		FirstUpdateID: d.FirstUpdateID,
		LastUpdateID:  d.LastUpdateID,
		PrevUpdateID:  prevID,
		Bids:          append([]canonical.PriceLevel(nil), d.Bids...),
		Asks:          append([]canonical.PriceLevel(nil), d.Asks...),
	})
}

func (e *Engine) metaLocked() canonical.Meta {
	ts := e.lastEventTime
	if ts.IsZero() {
		ts = time.Now()
	}
	return canonical.Meta{
		Exchange:     e.exchange,
		MarketType:   e.marketType,
		Symbol:       e.symbol,
		InstrumentID: e.instrument,
		Timestamp:    timestamp.Format(ts),
		CollectedAt:  timestamp.Format(time.Now()),
	}
}
