package orchestrator

import (
	"context"
	"time"
)

func (s *Service) RunSnapshotFlusher(ctx context.Context, interval time.Duration) {
	if s == nil || s.store == nil {
		return
	}
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("snapshot flusher started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			// last flush on shutdown
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
			s.FlushSnapshots(flushCtx)
			cancel()
			return
		case <-ticker.C:
			s.FlushSnapshots(ctx)
		}
	}
}

// FlushSnapshots writes every conversation touched since the last flush and
// returns how many were persisted. Failed writes are retried on the next tick.
func (s *Service) FlushSnapshots(ctx context.Context) int {
	if s.store == nil {
		return 0
	}
	flushed := 0
	for _, id := range s.takeDirty() {
		if ctx.Err() != nil {
			s.markDirty(id)
			continue
		}
		if s.flushOne(ctx, id) {
			flushed++
		}
	}
	if flushed > 0 {
		s.logger.Debug("snapshots flushed", "count", flushed)
	}
	return flushed
}

// flushOne reads and writes under the conversation stripe; Reset and Evict
// take the same stripe.
func (s *Service) flushOne(ctx context.Context, id string) bool {
	unlock := s.lockConversation(id)
	defer unlock()

	snap, ok := s.engine.Get(id)
	if !ok {
		return false
	}
	if err := s.store.UpsertSnapshot(ctx, snap); err != nil {
		s.markDirty(id)
		s.logger.Warn("snapshot flush failed", "conversation_id", id, "error", err)
		return false
	}
	return true
}
