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

type representativeDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Phone     string             `bson:"phone"`
	Email     string             `bson:"email"`
	IsActive  bool               `bson:"isActive"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d representativeDoc) toDomain() domain.Representative {
	return domain.Representative{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Phone:     d.Phone,
		Email:     d.Email,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type RepresentativeRepo struct {
	coll *mongo.Collection
}

func (r *RepresentativeRepo) GetByID(ctx context.Context, id string) (domain.Representative, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.Representative{}, domain.ErrRepresentativeNotFound()
	}
	var d representativeDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Representative{}, domain.ErrRepresentativeNotFound()
	}
	if err != nil {
		return domain.Representative{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (r *RepresentativeRepo) find(ctx context.Context, filter bson.M) ([]domain.Representative, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}
	var docs []representativeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Representative, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RepresentativeRepo) ListActive(ctx context.Context) ([]domain.Representative, error) {
	return r.find(ctx, bson.M{"isActive": true})
}

func (r *RepresentativeRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Representative, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (r *RepresentativeRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// InsertMany is an ordered insert; a duplicate email stops it with a conflict.
func (r *RepresentativeRepo) InsertMany(ctx context.Context, reps []domain.Representative) ([]domain.Representative, error) {
	docs := make([]any, 0, len(reps))
	out := make([]domain.Representative, 0, len(reps))
	for _, rep := range reps {
		d := representativeDoc{
			ID:        primitive.NewObjectID(),
			Name:      rep.Name,
			Phone:     rep.Phone,
			Email:     domain.NormalizeEmail(rep.Email),
			IsActive:  rep.IsActive,
			CreatedAt: rep.CreatedAt,
			UpdatedAt: rep.UpdatedAt,
		}
		docs = append(docs, d)
		out = append(out, d.toDomain())
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.New(domain.KindConflict, "representative_exists", "representative email already exists")
		}
		return nil, mapErr(err)
	}
	return out, nil
}
