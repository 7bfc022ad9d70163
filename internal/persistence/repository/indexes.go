package repository

import (
	"context"
	"fmt"

	"github.com/hilthontt/cipherroom/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the message and profile indexes. Audit log indexes are
// owned by the audit repository.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	// History reads and trims walk a room in _id order
	if _, err := database.Collection(db.MessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "room", Value: 1},
			{Key: "_id", Value: 1},
		},
	}); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	if _, err := database.Collection(db.ProfilesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "rooms.code", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create profile indexes: %w", err)
	}

	return nil
}
