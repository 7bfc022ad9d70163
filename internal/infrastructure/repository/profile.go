package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
)

type profileRepository struct {
	profiles map[string]*domain.Profile // userID -> Profile
	mu       sync.RWMutex
}

func NewProfileRepository() domain.ProfileRepository {
	return &profileRepository{
		profiles: make(map[string]*domain.Profile),
	}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return &domain.Profile{UserID: userID, Rooms: []domain.RoomVisit{}}, nil
	}

	cpy := *p
	cpy.Rooms = slices.Clone(p.Rooms)
	return &cpy, nil
}

func (r *profileRepository) RecordVisit(ctx context.Context, userID string, visit domain.RoomVisit) error {
	if userID == "" || visit.Code == "" {
		return domain.NewValidationError("user and room are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.getOrCreate(userID)
	p.Rooms = domain.PushVisit(p.Rooms, visit)
	p.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *profileRepository) RemoveVisit(ctx context.Context, userID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil
	}

	p.Rooms = slices.DeleteFunc(p.Rooms, func(v domain.RoomVisit) bool {
		return v.Code == code
	})
	p.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *profileRepository) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	if userID == "" {
		return domain.NewValidationError("user is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.getOrCreate(userID)
	p.AvatarURL = avatarURL
	p.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *profileRepository) getOrCreate(userID string) *domain.Profile {
	p, ok := r.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID, Rooms: []domain.RoomVisit{}}
		r.profiles[userID] = p
	}
	return p
}
