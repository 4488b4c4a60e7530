// Package feed maintains the websocket subscriptions raw market data arrives
// on. One Feed owns one connection to one venue; adapters supply the
// venue-specific subscribe payloads and message classification.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"canonflow/internal/canonical"
	"canonflow/internal/channel"
	"canonflow/logger"
	"canonflow/models"
)

// Classified is one data event extracted from a websocket message.
type Classified struct {
	DataType canonical.DataType
	Symbol   string
	Payload  []byte
}

// Adapter encapsulates one venue's wire protocol.
type Adapter interface {
	// Name is the canonical exchange id the adapter feeds.
	Name() string
	// Subscriptions returns the messages to send after connecting.
	Subscriptions(symbols, channels []string) ([]any, error)
	// Handle classifies one inbound message. Control traffic (pings,
	// subscription acks) returns no events; reply sends a frame back on the
	// connection when the protocol demands an application-level pong.
	Handle(msg []byte, reply func([]byte)) []Classified
	// PingInterval and PingMessage define the keepalive; a zero interval
	// disables application-level pings.
	PingInterval() time.Duration
	PingMessage() []byte
}

// Feed is one reconnecting websocket subscription.
type Feed struct {
	adapter        Adapter
	wsURL          string
	marketType     string
	symbols        []string
	channels       []string
	chans          *channel.Channels
	reconnectDelay time.Duration

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

func NewFeed(adapter Adapter, wsURL, marketType string, symbols, channels []string, chans *channel.Channels, reconnectDelay time.Duration) *Feed {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Feed{
		adapter:        adapter,
		wsURL:          wsURL,
		marketType:     marketType,
		symbols:        symbols,
		channels:       channels,
		chans:          chans,
		reconnectDelay: reconnectDelay,
		wg:             &sync.WaitGroup{},
		log:            logger.GetLogger(),
	}
}

func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("%s feed already running", f.adapter.Name())
	}
	f.running = true
	f.ctx = ctx
	f.mu.Unlock()

	f.log.WithComponent(f.adapter.Name() + "_feed").WithFields(logger.Fields{
		"url":      f.wsURL,
		"symbols":  f.symbols,
		"channels": f.channels,
	}).Info("starting feed")

	f.wg.Add(1)
	go f.stream()
	return nil
}

func (f *Feed) Stop() {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	f.wg.Wait()
	f.log.WithComponent(f.adapter.Name() + "_feed").Info("feed stopped")
}

// stream owns the connect / subscribe / read / reconnect cycle.
func (f *Feed) stream() {
	defer f.wg.Done()
	log := f.log.WithComponent(f.adapter.Name() + "_feed")

	for {
		if f.ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.Dial(f.wsURL, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect websocket, retrying")
			logger.IncrementReconnect()
			select {
			case <-time.After(f.reconnectDelay):
				continue
			case <-f.ctx.Done():
				return
			}
		}

		if err := f.subscribe(conn); err != nil {
			log.WithError(err).Warn("failed to subscribe")
			conn.Close()
			continue
		}

		done := make(chan struct{})
		f.startPinger(conn, done)
		f.readLoop(conn, done, log)

		select {
		case <-time.After(time.Second):
		case <-f.ctx.Done():
			return
		}
	}
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	subs, err := f.adapter.Subscriptions(f.symbols, f.channels)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := conn.WriteJSON(sub); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) startPinger(conn *websocket.Conn, done chan struct{}) {
	interval := f.adapter.PingInterval()
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-f.ctx.Done():
				return
			case <-ticker.C:
				conn.WriteMessage(websocket.TextMessage, f.adapter.PingMessage())
			}
		}
	}()
}

func (f *Feed) readLoop(conn *websocket.Conn, done chan struct{}, log *logger.Entry) {
	defer close(done)
	defer conn.Close()

	reply := func(frame []byte) {
		conn.WriteMessage(websocket.TextMessage, frame)
	}

	for {
		if f.ctx.Err() != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() == nil {
				log.WithError(err).Warn("websocket read error, reconnecting")
				logger.IncrementReconnect()
			}
			return
		}

		for _, ev := range f.adapter.Handle(msg, reply) {
			raw := &models.RawMessage{
				Exchange:   f.adapter.Name(),
				MarketType: f.marketType,
				DataType:   ev.DataType,
				Symbol:     ev.Symbol,
				Data:       ev.Payload,
				ReceivedAt: time.Now(),
			}
			f.chans.SendRaw(f.ctx, raw)
		}
	}
}
