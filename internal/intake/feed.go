package intake

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/observability"
)

// FeedConfig configures the detector WebSocket feed.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing control frames.
	WriteTimeout time.Duration
	// Buffer is the seed channel capacity.
	Buffer int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            64,
	}
}

// Feed is a reconnecting WebSocket consumer of detector candidate events.
// Each valid event is parsed into a CandidateSeed; invalid payloads are
// counted and dropped.
type Feed struct {
	endpoint string
	config   FeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	seeds   chan domain.CandidateSeed
	dropped atomic.Uint64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFeed connects to the detector endpoint and starts consuming.
func NewFeed(ctx context.Context, endpoint string, config *FeedConfig, logger *log.Logger) (*Feed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &Feed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		seeds:    make(chan domain.CandidateSeed, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

// Seeds returns the channel of validated candidate seeds.
func (f *Feed) Seeds() <-chan domain.CandidateSeed {
	return f.seeds
}

// Dropped returns the count of payloads rejected at intake.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

// Close shuts the feed down and closes the seed channel.
func (f *Feed) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.seeds)
	return nil
}

func (f *Feed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return err
	}
	conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		return nil
	})

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	return nil
}

func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			f.logger.Printf("[intake] read error, reconnecting: %v", err)
			if !f.reconnect() {
				return
			}
			continue
		}
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		seed, err := ParseSeed(payload)
		if err != nil {
			f.dropped.Add(1)
			observability.RecordCandidateDropped(DropReason(err))
			f.logger.Printf("[intake] dropped payload: %v", err)
			continue
		}

		select {
		case f.seeds <- seed:
		case <-f.done:
			return
		}
	}
}

// reconnect dials with exponential backoff until success or shutdown.
func (f *Feed) reconnect() bool {
	delay := f.config.ReconnectDelay
	for {
		select {
		case <-f.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), f.config.WriteTimeout)
		err := f.connect(ctx)
		cancel()
		if err == nil {
			f.logger.Printf("[intake] reconnected to %s", f.endpoint)
			return true
		}
		f.logger.Printf("[intake] reconnect failed: %v", err)

		delay *= 2
		if delay > f.config.MaxReconnectDelay {
			delay = f.config.MaxReconnectDelay
		}
	}
}

func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			deadline := time.Now().Add(f.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil && !f.closed.Load() {
				f.logger.Printf("[intake] ping failed: %v", err)
			}
		}
	}
}
