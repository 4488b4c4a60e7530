// Package pipeline routes raw messages through normalization and the book
// engines, and drains canonical records into the publication boundary.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appconfig "canonflow/config"
	"canonflow/internal/canonical"
	"canonflow/internal/channel"
	"canonflow/internal/normalizer"
	"canonflow/internal/orderbook"
	"canonflow/internal/publish"
	"canonflow/internal/symbols"
	"canonflow/logger"
	"canonflow/models"
)

// Processor consumes raw messages, resolves a normalizer or book decoder for
// each, and hands the resulting canonical records to the publisher.
type Processor struct {
	config    *appconfig.Config
	chans     *channel.Channels
	registry  *normalizer.Registry
	books     *orderbook.Manager
	publisher publish.Publisher

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log

	processed int64
	failed    int64
	published int64
}

func NewProcessor(cfg *appconfig.Config, chans *channel.Channels, registry *normalizer.Registry, books *orderbook.Manager, publisher publish.Publisher) *Processor {
	return &Processor{
		config:    cfg,
		chans:     chans,
		registry:  registry,
		books:     books,
		publisher: publisher,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
	}
}

func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("processor already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("processor")
	log.Info("starting processor")

	workers := p.config.Processor.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.publishLoop()

	p.wg.Add(1)
	go p.metricsReporter(ctx)

	log.WithFields(logger.Fields{"workers": workers}).Info("processor started")
	return nil
}

func (p *Processor) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.log.WithComponent("processor").Info("stopping processor")
	p.wg.Wait()
	p.log.WithComponent("processor").Info("processor stopped")
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-p.chans.Raw:
			if !ok {
				return
			}
			p.handleMessage(msg)
		}
	}
}

func (p *Processor) handleMessage(raw *models.RawMessage) {
	switch raw.DataType {
	case canonical.DataTypeOrderBookSnapshot, canonical.DataTypeOrderBookDelta:
		p.handleBook(raw)
	default:
		p.handleRecord(raw)
	}
}

// handleBook feeds decoded book events through the consistency engine; the
// engine emits canonical records itself once the book is synchronized.
func (p *Processor) handleBook(raw *models.RawMessage) {
	update, err := p.registry.DecodeBook(raw)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		p.log.WithComponent("processor").WithError(err).WithFields(logger.Fields{
			"exchange": raw.Exchange,
			"symbol":   raw.Symbol,
		}).Warn("failed to decode book payload")
		return
	}

	instrument := update.Instrument
	if instrument == "" {
		instrument = raw.Symbol
	}
	exchange := symbols.NormalizeExchange(raw.Exchange)
	engine := p.books.Get(exchange, instrument, symbols.NormalizeMarketType(raw.MarketType))

	if update.Snapshot != nil {
		engine.ApplySnapshot(*update.Snapshot)
	}
	for _, d := range update.Deltas {
		engine.ApplyDelta(d)
	}
	atomic.AddInt64(&p.processed, 1)
}

func (p *Processor) handleRecord(raw *models.RawMessage) {
	records, err := p.registry.Normalize(raw)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		p.log.WithComponent("processor").WithError(err).WithFields(logger.Fields{
			"exchange":  raw.Exchange,
			"data_type": raw.DataType,
			"symbol":    raw.Symbol,
		}).Warn("failed to normalize payload")
		return
	}

	for _, rec := range records {
		p.chans.SendRecord(p.ctx, rec)
	}
	atomic.AddInt64(&p.processed, 1)
}

// publishLoop drains the record channel into the publication boundary.
// Publish failures are logged and counted, never surfaced to producers.
func (p *Processor) publishLoop() {
	defer p.wg.Done()

	prefix := p.config.Kafka.SubjectPrefix
	for {
		select {
		case <-p.ctx.Done():
			return
		case rec, ok := <-p.chans.Records:
			if !ok {
				return
			}
			subject := publish.SubjectFor(rec, prefix)
			if err := p.publisher.Publish(p.ctx, subject, rec.Flatten()); err != nil {
				p.log.WithComponent("processor").WithError(err).WithFields(logger.Fields{
					"subject": subject,
				}).Warn("failed to publish record")
				continue
			}
			atomic.AddInt64(&p.published, 1)
		}
	}
}

func (p *Processor) metricsReporter(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := p.chans.GetStats()
			p.log.WithComponent("processor").WithFields(logger.Fields{
				"processed":      atomic.LoadInt64(&p.processed),
				"failed":         atomic.LoadInt64(&p.failed),
				"published":      atomic.LoadInt64(&p.published),
				"raw_sent":       stats.RawSent,
				"raw_dropped":    stats.RawDropped,
				"record_sent":    stats.RecordSent,
				"record_dropped": stats.RecordDropped,
				"books":          len(p.books.Health()),
			}).Info("processor metrics")
		}
	}
}
