package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
)

// startRunner ticks the session's engine on a wall-clock timer until the run
// settles or the runner is stopped. The caller holds the session lock.
func (s *gameServiceImpl) startRunner(sess *Session) {
	s.stopRunner(sess)

	ctx, cancel := context.WithCancel(context.Background())
	sess.runner = cancel
	dt := float32(s.tickInterval.Seconds())
	logger := s.log.WithField("session", sess.ID)
	logger.Debug("Realtime runner started")

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			sess.mu.Lock()
			if ctx.Err() != nil {
				sess.mu.Unlock()
				return
			}
			sess.Engine.Tick(dt)
			settled := sess.Engine.IsSettled()
			var next string
			if settled {
				sess.runner = nil
				cancel()
				if id, ok := s.advanceCampaign(sess); ok {
					next = id
				}
			}
			state := sess.Engine.GetState()
			sess.mu.Unlock()

			s.broadcast(sess.ID, state)
			if settled {
				s.broadcastEvent(sess.ID, "run_settled", map[string]engine.Outcome{"outcome": state.Outcome})
				if next != "" {
					s.broadcastEvent(sess.ID, "level_advanced", map[string]string{"level_id": next})
				}
				logger.WithField("outcome", state.Outcome).Debug("Realtime runner finished")
				return
			}
		}
	}()
}

// stopRunner cancels the session's realtime runner if one is active. The
// caller holds the session lock.
func (s *gameServiceImpl) stopRunner(sess *Session) {
	if sess.runner == nil {
		return
	}
	sess.runner()
	sess.runner = nil
}
