package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
)

type roomAuditLogRepository struct {
	logs []domain.RoomAuditLog
	mu   sync.RWMutex
}

func NewRoomAuditLogRepository() domain.RoomAuditRepository {
	return &roomAuditLogRepository{}
}

func (r *roomAuditLogRepository) Log(ctx context.Context, log *domain.RoomAuditLog) error {
	if log == nil {
		return domain.NewValidationError("audit log is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, *log)
	return nil
}

// GetByRoom returns the newest entries first.
func (r *roomAuditLogRepository) GetByRoom(ctx context.Context, roomRef string, limit int) ([]domain.RoomAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RoomAuditLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].RoomRef != roomRef {
			continue
		}
		out = append(out, r.logs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *roomAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = slices.DeleteFunc(r.logs, func(l domain.RoomAuditLog) bool {
		return l.Timestamp.Before(before)
	})
	return nil
}

func (r *roomAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}
