package reservation

import (
	"context"
	"log/slog"
	"time"
)

const sweepBatchSize = 100

type Sweeper interface {
	ReleaseExpired(ctx context.Context) (int64, error)
}

type sweeper struct {
	r   Repo
	svc Service
	log *slog.Logger
}

func NewSweeper(r Repo, svc Service, log *slog.Logger) Sweeper {
	return &sweeper{r: r, svc: svc, log: log}
}

// ReleaseExpired cancels stale active reservations through the same state
// machine as a user-initiated cancel, so stock accounting stays intact.
func (s *sweeper) ReleaseExpired(ctx context.Context) (int64, error) {
	ids, err := s.r.ExpiredActive(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if err := s.svc.CancelExpired(ctx, id); err != nil {
			// Raced with a user cancel/complete between scan and lock.
			if Code(err) == ErrInvalidTransition {
				continue
			}
			s.log.Error("expire reservation", "id", id, "err", err)
			continue
		}
		n++
	}
	return n, nil
}
