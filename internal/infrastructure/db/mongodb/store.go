// Package mongodb is the MongoDB-backed user and representative store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/baechuer/member-portal/internal/domain"
)

const (
	usersCollection           = "users"
	representativesCollection = "representatives"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the cluster, verifies it with a ping and makes sure the
// indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verificationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "verificationStatus", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	_, err = s.db.Collection(representativesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{coll: s.db.Collection(usersCollection), now: time.Now}
}

func (s *Store) Representatives() *RepresentativeRepo {
	return &RepresentativeRepo{coll: s.db.Collection(representativesCollection)}
}

// objectID parses a hex id. Malformed ids cannot match any document.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return domain.ErrDBUnavailable(err)
	default:
		return domain.ErrInternal(err)
	}
}
