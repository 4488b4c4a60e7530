// Package channel wires the pipeline stages together with bounded buffers.
// Sends never block a producer: a full buffer drops the message and counts
// the drop, so a slow consumer shows up in stats instead of stalling a feed.
package channel

import (
	"context"
	"sync"

	"canonflow/internal/canonical"
	"canonflow/logger"
	"canonflow/models"
)

type Stats struct {
	RawSent       int64
	RecordSent    int64
	RawDropped    int64
	RecordDropped int64
}

type Channels struct {
	Raw     chan *models.RawMessage
	Records chan canonical.Record

	stats      Stats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(rawBufferSize, recordBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Raw:     make(chan *models.RawMessage, rawBufferSize),
		Records: make(chan canonical.Record, recordBufferSize),
		log:     log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"raw_buffer_size":    rawBufferSize,
		"record_buffer_size": recordBufferSize,
	}).Info("pipeline channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Raw)
	close(c.Records)
	c.log.WithComponent("channels").Info("pipeline channels closed")
}

func (c *Channels) SendRaw(ctx context.Context, msg *models.RawMessage) bool {
	select {
	case c.Raw <- msg:
		c.statsMutex.Lock()
		c.stats.RawSent++
		c.statsMutex.Unlock()
		logger.RecordChannelMessage("raw", len(msg.Data))
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.RawDropped++
		c.statsMutex.Unlock()
		logger.RecordChannelMessage("raw_dropped", len(msg.Data))
		return false
	}
}

func (c *Channels) SendRecord(ctx context.Context, rec canonical.Record) bool {
	select {
	case c.Records <- rec:
		c.statsMutex.Lock()
		c.stats.RecordSent++
		c.statsMutex.Unlock()
		logger.RecordChannelMessage("records", 1)
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.RecordDropped++
		c.statsMutex.Unlock()
		logger.RecordChannelMessage("records_dropped", 1)
		return false
	}
}

func (c *Channels) GetStats() Stats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
