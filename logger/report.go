package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsBook       int64
	errorsNormalizer int64
	warnsBook        int64
	warnsNormalizer  int64
	formatMisses     int64
	sequenceGaps     int64
	resyncs          int64
	reconnects       int64
	recordsPublished int64
	channels         sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "book") || strings.Contains(component, "engine") {
		atomic.AddInt64(&warnsBook, 1)
	} else if strings.Contains(component, "normalizer") {
		atomic.AddInt64(&warnsNormalizer, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "book") || strings.Contains(component, "engine") {
		atomic.AddInt64(&errorsBook, 1)
	} else if strings.Contains(component, "normalizer") {
		atomic.AddInt64(&errorsNormalizer, 1)
	}
}

// IncrementFormatMiss counts a non-fatal identity/time normalization miss.
func IncrementFormatMiss() {
	atomic.AddInt64(&formatMisses, 1)
}

// IncrementSequenceGap counts an order-book sequence gap or checksum mismatch.
func IncrementSequenceGap() {
	atomic.AddInt64(&sequenceGaps, 1)
}

// IncrementResync counts a completed snapshot resynchronization.
func IncrementResync() {
	atomic.AddInt64(&resyncs, 1)
}

// IncrementReconnect counts a feed websocket reconnection attempt.
func IncrementReconnect() {
	atomic.AddInt64(&reconnects, 1)
}

// IncrementPublished counts a canonical record handed to the publication boundary.
func IncrementPublished(size int) {
	atomic.AddInt64(&recordsPublished, 1)
	recordChannel("published", size)
}

// RecordChannelMessage tracks message and byte counts per named channel.
func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and channel statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	netStats, _ := gnet.IOCounters(false)
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	var usedMB int64
	if memStats != nil {
		usedMB = int64(memStats.Used) / 1024 / 1024
	}

	log.WithComponent("report").WithFields(Fields{
		"errors_book":       atomic.LoadInt64(&errorsBook),
		"errors_normalizer": atomic.LoadInt64(&errorsNormalizer),
		"warns_book":        atomic.LoadInt64(&warnsBook),
		"warns_normalizer":  atomic.LoadInt64(&warnsNormalizer),
		"format_misses":     atomic.LoadInt64(&formatMisses),
		"sequence_gaps":     atomic.LoadInt64(&sequenceGaps),
		"resyncs":           atomic.LoadInt64(&resyncs),
		"reconnects":        atomic.LoadInt64(&reconnects),
		"records_published": atomic.LoadInt64(&recordsPublished),
		"goroutines":        runtime.NumGoroutine(),
		"cpu_percent":       cpuPct,
		"memory_mb":         usedMB,
		"channels":          channelData,
		"net_bytes_sent":    int64(bytesSent),
		"net_bytes_recv":    int64(bytesRecv),
	}).Info("runtime report")
}
