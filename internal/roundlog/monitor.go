// Package roundlog records settled and aborted rounds to disk as JSON lines,
// with buffered writes flushed on a timer and at shutdown.
package roundlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/rpsbet/internal/fileutil"
)

const (
	defaultFilename      = "rounds.jsonl"
	defaultSnapshotName  = "balances.json"
	defaultFlushInterval = 10 * time.Second
	defaultFlushRounds   = 50
)

// Outcome says how a round ended.
type Outcome string

const (
	OutcomeSettled Outcome = "settled"
	OutcomeAborted Outcome = "aborted"
)

// PlayerRecord is one committed slot of a recorded round.
type PlayerRecord struct {
	Slot    int    `json:"slot"`
	Address string `json:"address"`
	Choice  string `json:"choice"`
}

// Record is one line of the round log.
type Record struct {
	RoundID       string           `json:"round_id"`
	RecordedAt    time.Time        `json:"recorded_at"`
	Bet           int64            `json:"bet"`
	Outcome       Outcome          `json:"outcome"`
	Players       []PlayerRecord   `json:"players"`
	WinnerSlot    int              `json:"winner_slot"`
	WinnerAddress string           `json:"winner_address,omitempty"`
	Payout        int64            `json:"payout,omitempty"`
	Refunds       map[string]int64 `json:"refunds,omitempty"`
}

// Config configures a Monitor.
type Config struct {
	Dir           string
	Filename      string
	FlushInterval time.Duration
	FlushRounds   int
	Clock         quartz.Clock
	// Snapshot, when set, is queried at every flush and its result written
	// atomically beside the log. The server wires the ledger in here.
	Snapshot func() map[string]int64
}

// Monitor buffers round records and flushes them to a JSONL file.
type Monitor struct {
	cfg      Config
	logger   zerolog.Logger
	clock    quartz.Clock
	outPath  string
	snapPath string

	mu       sync.Mutex
	buffer   []Record
	snapshot func() map[string]int64

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewMonitor creates a monitor and starts its flush loop.
func NewMonitor(logger zerolog.Logger, cfg Config) (*Monitor, error) {
	if cfg.Dir == "" {
		return nil, errors.New("roundlog: Dir is required")
	}
	if cfg.Filename == "" {
		cfg.Filename = defaultFilename
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.FlushRounds <= 0 {
		cfg.FlushRounds = defaultFlushRounds
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("roundlog: create dir: %w", err)
	}

	m := &Monitor{
		cfg:      cfg,
		logger:   logger.With().Str("component", "roundlog").Logger(),
		clock:    cfg.Clock,
		outPath:  filepath.Join(cfg.Dir, cfg.Filename),
		snapPath: filepath.Join(cfg.Dir, defaultSnapshotName),
		buffer:   make([]Record, 0, cfg.FlushRounds),
		snapshot: cfg.Snapshot,
		stop:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

func (m *Monitor) run() {
	defer m.wg.Done()
	ticker := m.clock.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.Flush(); err != nil {
				m.logger.Error().Err(err).Msg("periodic flush failed")
			}
		case <-m.stop:
			return
		}
	}
}

// SetSnapshot installs or replaces the balance snapshot source.
func (m *Monitor) SetSnapshot(fn func() map[string]int64) {
	m.mu.Lock()
	m.snapshot = fn
	m.mu.Unlock()
}

// Record buffers a round. The buffer is flushed early once it reaches the
// configured size.
func (m *Monitor) Record(rec Record) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = m.clock.Now()
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, rec)
	full := len(m.buffer) >= m.cfg.FlushRounds
	m.mu.Unlock()

	if full {
		if err := m.Flush(); err != nil {
			m.logger.Error().Err(err).Msg("flush on full buffer failed")
		}
	}
}

// Flush appends buffered records to the log file and refreshes the balance
// snapshot. A write failure keeps the records buffered for the next attempt.
func (m *Monitor) Flush() error {
	m.mu.Lock()
	pending := m.buffer
	m.buffer = make([]Record, 0, m.cfg.FlushRounds)
	m.mu.Unlock()

	if len(pending) > 0 {
		if err := m.appendRecords(pending); err != nil {
			m.mu.Lock()
			m.buffer = append(pending, m.buffer...)
			m.mu.Unlock()
			return err
		}
		m.logger.Debug().Int("rounds", len(pending)).Msg("flushed round records")
	}

	m.mu.Lock()
	snapshot := m.snapshot
	m.mu.Unlock()
	if snapshot != nil {
		data, err := json.MarshalIndent(snapshot(), "", "  ")
		if err != nil {
			return fmt.Errorf("roundlog: encode snapshot: %w", err)
		}
		if err := fileutil.WriteFileAtomic(m.snapPath, data, 0o644); err != nil {
			return fmt.Errorf("roundlog: write snapshot: %w", err)
		}
	}
	return nil
}

func (m *Monitor) appendRecords(records []Record) error {
	f, err := os.OpenFile(m.outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("roundlog: open log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("roundlog: append record: %w", err)
		}
	}
	return f.Sync()
}

// Close stops the flush loop and writes out anything still buffered.
func (m *Monitor) Close() error {
	close(m.stop)
	m.wg.Wait()
	return m.Flush()
}
