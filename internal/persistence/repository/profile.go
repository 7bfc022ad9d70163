package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type profileDocument struct {
	UserID    string             `bson:"_id"`
	AvatarURL string             `bson:"avatarUrl,omitempty"`
	Rooms     []domain.RoomVisit `bson:"rooms"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type profileRepository struct {
	db *mongo.Database
}

func NewProfileRepository(db *mongo.Database) domain.ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

func (r *profileRepository) collection() *mongo.Collection {
	return r.db.Collection(db.ProfilesCollection)
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var doc profileDocument
	err := r.collection().FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.Profile{UserID: userID, Rooms: []domain.RoomVisit{}}, nil
	}
	if err != nil {
		return nil, err
	}

	if doc.Rooms == nil {
		doc.Rooms = []domain.RoomVisit{}
	}

	return &domain.Profile{
		UserID:    doc.UserID,
		AvatarURL: doc.AvatarURL,
		Rooms:     doc.Rooms,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// RecordVisit drops any previous entry for the room, then pushes the visit to
// the front and caps the list.
func (r *profileRepository) RecordVisit(ctx context.Context, userID string, visit domain.RoomVisit) error {
	if userID == "" || visit.Code == "" {
		return domain.NewValidationError("user and room are required")
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": userID}

	if _, err := r.collection().UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"rooms": bson.M{"code": visit.Code}},
	}); err != nil {
		return err
	}

	_, err := r.collection().UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{
			"rooms": bson.M{
				"$each":     []domain.RoomVisit{visit},
				"$position": 0,
				"$slice":    domain.MaxRecentRooms,
			},
		},
		"$set": bson.M{"updatedAt": now},
	}, options.Update().SetUpsert(true))

	return err
}

func (r *profileRepository) RemoveVisit(ctx context.Context, userID, code string) error {
	_, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"rooms": bson.M{"code": code}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (r *profileRepository) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	if userID == "" {
		return domain.NewValidationError("user is required")
	}

	_, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set":         bson.M{"avatarUrl": avatarURL, "updatedAt": time.Now().UTC()},
		"$setOnInsert": bson.M{"rooms": []domain.RoomVisit{}},
	}, options.Update().SetUpsert(true))

	return err
}
