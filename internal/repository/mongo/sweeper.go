package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// StartSweeper deletes expired sessions every interval until Close.
//
// Expiry is already enforced lazily when a token is verified; the sweeper only
// keeps the sessions collection from growing without bound. Calling it more than
// once has no effect.
func (s *Store) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.sweepOnce.Do(func() {
		s.logger.Info("starting expired-session sweeper", slog.Duration("interval", interval))
		s.sweepWG.Add(1)
		go s.sweep(interval)
	})
}

func (s *Store) stopSweeper() {
	s.stopOnce.Do(func() {
		close(s.sweepDone)
		s.sweepWG.Wait()
	})
}

func (s *Store) sweep(interval time.Duration) {
	defer s.sweepWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.sweepDone:
			return
		case <-ticker.C:
			if n, err := s.DeleteExpiredSessions(context.Background(), time.Now().UTC()); err != nil {
				s.logger.Error("sweeping expired sessions failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.logger.Info("swept expired sessions", slog.Int64("deleted", n))
			}
		}
	}
}

// DeleteExpiredSessions removes every session whose expiry is before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sessions.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now}}}})
	if err != nil {
		return 0, wrapErr("deleting expired sessions", err)
	}
	return res.DeletedCount, nil
}
