package main

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the one running game shared by every connected client
type Session struct {
	ID        string
	StartedAt time.Time
	Engine    *Engine

	journal EventSink
	log     *Logger
}

// NewSession creates a session with a fresh id. journal may be nil.
func NewSession(cfg *Config, log *Logger, journal *Journal) *Session {
	id := uuid.NewString()
	var sink EventSink = nopSink{}
	if journal != nil {
		sink = journal.For(id)
	}
	log = log.With("session", id)
	return &Session{
		ID:      id,
		Engine:  NewEngine(cfg, log, sink),
		journal: sink,
		log:     log,
	}
}

// Start runs the engine
func (s *Session) Start(ctx context.Context) error {
	if err := s.Engine.Start(ctx); err != nil {
		return err
	}
	s.StartedAt = time.Now()
	s.journal.Track(JournalEvent{Type: EventSessionStart, GameID: s.Engine.game.ID()})
	s.log.Info("session started")
	return nil
}

// Stop stops the engine and journals the shutdown
func (s *Session) Stop() error {
	err := s.Engine.Stop()
	snap := s.Engine.Snapshot()
	s.journal.Track(JournalEvent{Type: EventShutdown, GameID: snap.GameID, Score: snap.Score})
	s.log.Info("session stopped", "uptime", time.Since(s.StartedAt).Round(time.Second).String())
	return err
}
