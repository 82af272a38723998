package main

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Journal event types
const (
	EventSessionStart = "session_start"
	EventGameOver     = "game_over"
	EventReset        = "reset"
	EventLoopRestart  = "loop_restart"
	EventShutdown     = "shutdown"
)

const (
	journalBuffer     = 1024
	journalBatchSize  = 50
	journalFlushEvery = 2 * time.Second
)

// JournalEvent is one audit record
type JournalEvent struct {
	Type      string
	SessionID string
	GameID    string
	Score     int
	Detail    string
	Timestamp time.Time
}

// EventSink accepts journal events without blocking
type EventSink interface {
	Track(evt JournalEvent)
}

type nopSink struct{}

func (nopSink) Track(JournalEvent) {}

// Journal batches events in the background and writes them to the database
// through a circuit breaker, so a failing disk never stalls the game.
type Journal struct {
	db      *DB
	breaker *gobreaker.CircuitBreaker
	log     *Logger
	events  chan JournalEvent
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	mu      sync.Mutex
	dropped int
}

// NewJournal creates and starts the journal writer. db may be nil, in which
// case events are only counted.
func NewJournal(db *DB, log *Logger) *Journal {
	log = log.Component("journal")
	j := &Journal{
		db:     db,
		log:    log,
		events: make(chan JournalEvent, journalBuffer),
		stop:   make(chan struct{}),
	}
	j.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "journal",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	j.wg.Add(1)
	go j.writer()
	return j
}

// Track enqueues an event (non-blocking; drops when the buffer is full)
func (j *Journal) Track(evt JournalEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case j.events <- evt:
	default:
		j.mu.Lock()
		j.dropped++
		j.mu.Unlock()
	}
}

// For returns a sink stamping every event with sessionID
func (j *Journal) For(sessionID string) EventSink {
	return sessionSink{j: j, sessionID: sessionID}
}

type sessionSink struct {
	j         *Journal
	sessionID string
}

func (s sessionSink) Track(evt JournalEvent) {
	evt.SessionID = s.sessionID
	s.j.Track(evt)
}

// Dropped returns the number of events lost to a full buffer
func (j *Journal) Dropped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Stop flushes pending events and stops the writer
func (j *Journal) Stop() {
	j.once.Do(func() {
		close(j.stop)
		j.wg.Wait()
	})
}

func (j *Journal) writer() {
	defer j.wg.Done()

	batch := make([]JournalEvent, 0, journalBatchSize)
	ticker := time.NewTicker(journalFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-j.events:
			batch = append(batch, evt)
			if len(batch) >= journalBatchSize {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-j.stop:
		drain:
			for {
				select {
				case evt := <-j.events:
					batch = append(batch, evt)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				j.flush(batch)
			}
			return
		}
	}
}

func (j *Journal) flush(batch []JournalEvent) {
	if j.db == nil {
		return
	}
	_, err := j.breaker.Execute(func() (interface{}, error) {
		return nil, j.db.WriteEvents(batch)
	})
	if err != nil {
		j.log.Error("journal flush failed", "events", len(batch), "error", err)
	}
}
