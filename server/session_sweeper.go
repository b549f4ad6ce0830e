package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const sweepTimeout = 30 * time.Second

// scheduleSessionSweep registers the expired-session cleanup on the configured cron spec.
func (s *Server) scheduleSessionSweep() error {
	spec := s.config.GetSessionSweepSchedule()
	if spec == "" {
		return nil
	}
	if _, err := s.scheduler.AddFunc(spec, s.SweepSessions); err != nil {
		return fmt.Errorf("invalid session sweep schedule %q: %w", spec, err)
	}
	log.Debug().Str("schedule", spec).Msg("session sweep scheduled")
	return nil
}

// SweepSessions removes expired sessions, refresh tokens and revocation entries.
func (s *Server) SweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.auth.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("session sweep failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("expired sessions swept")
	}
}
