package changefeed

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Listener holds one pooled connection on LISTEN order_changes and hands
// each decoded event to Handle. It reconnects with exponential backoff.
type Listener struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Handle func(ctx context.Context, evt Event)
}

const maxBackoff = 30 * time.Second

func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := l.DB.Acquire(ctx)
		if err != nil {
			l.Logger.Warn("order changes LISTEN acquire failed", zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}

		if _, err = conn.Exec(ctx, "listen "+Channel); err != nil {
			conn.Release()
			l.Logger.Warn("order changes LISTEN failed", zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}

		backoff = time.Second
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					l.Logger.Warn("order changes wait failed", zap.Error(err))
				}
				break
			}
			evt, err := ParseEvent(n.Payload)
			if err != nil {
				l.Logger.Warn("order changes payload rejected", zap.String("payload", n.Payload), zap.Error(err))
				continue
			}
			if l.Handle != nil {
				l.Handle(ctx, evt)
			}
		}

		conn.Release()
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = minDuration(backoff*2, maxBackoff)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
