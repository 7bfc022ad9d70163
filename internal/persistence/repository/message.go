package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/persistence/db"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// messageDocument is the stored form of a domain.Message. The _id is a UUIDv7
// so sorting by it is sorting by insertion.
type messageDocument struct {
	ID         string          `bson:"_id"`
	RoomCode   string          `bson:"room"`
	Sender     string          `bson:"username"`
	AvatarURL  string          `bson:"avatarUrl,omitempty"`
	CreatedAt  time.Time       `bson:"time"`
	Kind       domain.BodyKind `bson:"kind"`
	System     bool            `bson:"system"`
	Text       string          `bson:"text,omitempty"`
	Ciphertext string          `bson:"ciphertext,omitempty"`
	IV         string          `bson:"iv,omitempty"`
	Algorithm  string          `bson:"alg,omitempty"`
}

func toMessageDocument(m *domain.Message) messageDocument {
	doc := messageDocument{
		ID:        m.ID,
		RoomCode:  m.RoomCode,
		Sender:    m.Sender,
		AvatarURL: m.AvatarURL,
		CreatedAt: m.CreatedAt,
		Kind:      m.Body.Kind(),
		System:    m.Body.IsSystem(),
		Text:      m.Body.Text(),
	}
	if payload, ok := m.Body.Encrypted(); ok {
		doc.Ciphertext = payload.Ciphertext
		doc.IV = payload.IV
		doc.Algorithm = payload.Algorithm
	}

	return doc
}

func (d messageDocument) toDomain() (domain.Message, error) {
	var body domain.MessageBody
	switch {
	case d.System:
		body = domain.SystemBody(d.Text)
	case d.Kind == domain.BodyPlain:
		body = domain.PlainBody(d.Text)
	case d.Kind == domain.BodySystem:
		body = domain.SystemBody(d.Text)
	case d.Kind == domain.BodyEncrypted:
		body = domain.EncryptedBody(domain.EncryptedPayload{
			Ciphertext: d.Ciphertext,
			IV:         d.IV,
			Algorithm:  d.Algorithm,
		})
	default:
		return domain.Message{}, fmt.Errorf("message %s has unknown kind %q", d.ID, d.Kind)
	}

	return domain.Message{
		ID:        d.ID,
		RoomCode:  d.RoomCode,
		Sender:    d.Sender,
		AvatarURL: d.AvatarURL,
		CreatedAt: d.CreatedAt,
		Body:      body,
	}, nil
}

type idDocument struct {
	ID string `bson:"_id"`
}

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(db *mongo.Database) domain.MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) collection() *mongo.Collection {
	return r.db.Collection(db.MessagesCollection)
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

	_, err := r.collection().InsertOne(ctx, toMessageDocument(message))
	return err
}

// GetByRoom returns the newest limit messages of the room, oldest first.
func (r *messageRepository) GetByRoom(ctx context.Context, roomCode string, limit int) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection().Find(ctx, bson.M{"room": roomCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Message, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		msg, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}

	return out, nil
}

func (r *messageRepository) DeleteByRoom(ctx context.Context, roomCode string) (int64, error) {
	res, err := r.collection().DeleteMany(ctx, bson.M{"room": roomCode})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *messageRepository) CountByRoom(ctx context.Context, roomCode string) (int64, error) {
	return r.collection().CountDocuments(ctx, bson.M{"room": roomCode})
}

func (r *messageRepository) TrimRoom(ctx context.Context, roomCode string, keep int) (int64, error) {
	return r.trim(ctx, bson.M{"room": roomCode}, keep)
}

func (r *messageRepository) TrimAll(ctx context.Context, keep int) (int64, error) {
	return r.trim(ctx, bson.M{}, keep)
}

// trim deletes the oldest documents matching filter beyond keep.
func (r *messageRepository) trim(ctx context.Context, filter bson.M, keep int) (int64, error) {
	if keep < 0 {
		return 0, nil
	}

	total, err := r.collection().CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}

	excess := total - int64(keep)
	if excess <= 0 {
		return 0, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(excess).
		SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var oldest []idDocument
	if err := cursor.All(ctx, &oldest); err != nil {
		return 0, err
	}

	ids := lo.Map(oldest, func(d idDocument, _ int) string {
		return d.ID
	})
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := r.collection().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}

	return res.DeletedCount, nil
}
