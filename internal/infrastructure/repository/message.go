package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
)

type storedMessage struct {
	seq     uint64
	message domain.Message
}

// messageRepository keeps messages in memory, oldest first per room. It backs the
// "memory" store driver and the tests.
type messageRepository struct {
	messages map[string][]storedMessage // roomCode -> messages
	seq      uint64
	mu       *sync.RWMutex
}

func NewMessageRepository() domain.MessageRepository {
	return &messageRepository{
		messages: make(map[string][]storedMessage),
		mu:       &sync.RWMutex{},
	}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if message == nil || message.RoomCode == "" {
		return domain.NewValidationError("message room is required")
	}
	if err := message.Body.Validate(); err != nil {
		return err
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.messages[message.RoomCode] = append(r.messages[message.RoomCode], storedMessage{
		seq:     r.seq,
		message: *message,
	})

	return nil
}

func (r *messageRepository) GetByRoom(ctx context.Context, roomCode string, limit int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.messages[roomCode]
	if limit > 0 && len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}

	// Return a copy to prevent external mutation
	out := make([]domain.Message, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.message)
	}

	return out, nil
}

func (r *messageRepository) DeleteByRoom(ctx context.Context, roomCode string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.messages[roomCode])
	delete(r.messages, roomCode)

	return int64(n), nil
}

func (r *messageRepository) CountByRoom(ctx context.Context, roomCode string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.messages[roomCode])), nil
}

func (r *messageRepository) TrimRoom(ctx context.Context, roomCode string, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.messages[roomCode]
	if keep < 0 || len(stored) <= keep {
		return 0, nil
	}

	excess := len(stored) - keep
	r.messages[roomCode] = slices.Clone(stored[excess:])

	return int64(excess), nil
}

func (r *messageRepository) TrimAll(ctx context.Context, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seqs := make([]uint64, 0)
	for _, stored := range r.messages {
		for _, s := range stored {
			seqs = append(seqs, s.seq)
		}
	}

	if keep < 0 || len(seqs) <= keep {
		return 0, nil
	}

	// Every room is ordered by seq, so the globally oldest messages form a prefix
	// of each room.
	slices.Sort(seqs)
	threshold := seqs[len(seqs)-keep-1]

	var removed int64
	for code, stored := range r.messages {
		i := 0
		for i < len(stored) && stored[i].seq <= threshold {
			i++
		}
		if i == 0 {
			continue
		}

		removed += int64(i)
		if i == len(stored) {
			delete(r.messages, code)
			continue
		}
		r.messages[code] = slices.Clone(stored[i:])
	}

	return removed, nil
}
