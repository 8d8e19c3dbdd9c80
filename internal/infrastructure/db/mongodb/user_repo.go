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

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	FirstName    string             `bson:"firstName"`
	LastName     string             `bson:"lastName"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Phone        string             `bson:"phone"`
	Company      string             `bson:"company"`
	Timezone     string             `bson:"timezone"`

	VerificationStatus string     `bson:"verificationStatus"`
	EmailVerified      bool       `bson:"emailVerified"`
	IsAdmin            bool       `bson:"isAdmin"`
	VerifiedBy         string     `bson:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time `bson:"verifiedAt,omitempty"`
	VerificationToken  string     `bson:"verificationToken,omitempty"`

	Representative *primitive.ObjectID `bson:"representative,omitempty"`

	PasswordResetToken   string     `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d userDoc) toDomain() domain.User {
	u := domain.User{
		ID:                   d.ID.Hex(),
		FirstName:            d.FirstName,
		LastName:             d.LastName,
		Email:                d.Email,
		PasswordHash:         d.PasswordHash,
		Phone:                d.Phone,
		Company:              d.Company,
		Timezone:             d.Timezone,
		VerificationStatus:   domain.VerificationStatus(d.VerificationStatus),
		EmailVerified:        d.EmailVerified,
		IsAdmin:              d.IsAdmin,
		VerifiedBy:           d.VerifiedBy,
		VerifiedAt:           d.VerifiedAt,
		VerificationToken:    d.VerificationToken,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: d.PasswordResetExpires,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	if d.Representative != nil {
		u.Representative = domain.RestoreRepresentativeRef(d.Representative.Hex())
	}
	return u
}

func userDocFrom(u domain.User) userDoc {
	d := userDoc{
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Email:                u.Email,
		PasswordHash:         u.PasswordHash,
		Phone:                u.Phone,
		Company:              u.Company,
		Timezone:             u.Timezone,
		VerificationStatus:   string(u.VerificationStatus),
		EmailVerified:        u.EmailVerified,
		IsAdmin:              u.IsAdmin,
		VerifiedBy:           u.VerifiedBy,
		VerifiedAt:           u.VerifiedAt,
		VerificationToken:    u.VerificationToken,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
	if oid, ok := objectID(u.ID); ok {
		d.ID = oid
	}
	if oid, ok := objectID(u.Representative.ID()); ok {
		d.Representative = &oid
	}
	return d
}

type UserRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M, notFound func() *domain.Error) (domain.User, error) {
	var d userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, notFound()
	}
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.findOne(ctx, bson.M{"_id": oid}, domain.ErrUserNotFound)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)}, domain.ErrUserNotFound)
}

func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrVerifyTokenNotFound()
	}
	return r.findOne(ctx, bson.M{"verificationToken": token}, domain.ErrVerifyTokenNotFound)
}

func (r *UserRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrResetTokenInvalid()
	}
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": bson.M{"$gt": now.UTC()},
	}, domain.ErrResetTokenInvalid)
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.VerificationStatus == "" {
		u.VerificationStatus = domain.StatusPending
	}
	if u.Timezone == "" {
		u.Timezone = domain.DefaultTimezone
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	u.UpdatedAt = u.CreatedAt

	d := userDocFrom(u)
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (r *UserRepo) find(ctx context.Context, filter bson.M) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	return r.find(ctx, bson.M{})
}

func (r *UserRepo) ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.User, error) {
	return r.find(ctx, bson.M{"verificationStatus": string(status)})
}

// update applies an update to one user and returns the new document.
func (r *UserRepo) update(ctx context.Context, filter bson.M, set bson.M, unset bson.M) (domain.User, error) {
	set["updatedAt"] = r.now().UTC()
	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}

	var d userDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return domain.User{}, err
	}
	return d.toDomain(), nil
}

func (r *UserRepo) updateByID(ctx context.Context, id string, set, unset bson.M) (domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u, err := r.update(ctx, bson.M{"_id": oid}, set, unset)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return u, nil
}

// Resolve is a conditional update on verificationStatus=pending, so two
// concurrent decisions cannot both succeed.
func (r *UserRepo) Resolve(ctx context.Context, userID string, res domain.Resolution) (domain.User, error) {
	oid, ok := objectID(userID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}

	set := bson.M{
		"verificationStatus": string(res.Status),
		"emailVerified":      res.EmailVerified,
		"verifiedBy":         res.VerifiedBy,
		"verifiedAt":         res.VerifiedAt.UTC(),
	}
	if rep, ok := objectID(res.Representative.ID()); ok {
		set["representative"] = rep
	}

	u, err := r.update(ctx, bson.M{"_id": oid, "verificationStatus": string(domain.StatusPending)},
		set, bson.M{"verificationToken": ""})
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, gerr := r.GetByID(ctx, userID)
		if gerr != nil {
			return domain.User{}, gerr
		}
		return domain.User{}, domain.ErrAlreadyResolved(cur.VerificationStatus)
	}
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return u, nil
}

func (r *UserRepo) SetRepresentative(ctx context.Context, userID string, ref domain.RepresentativeRef) (domain.User, error) {
	if rep, ok := objectID(ref.ID()); ok {
		return r.updateByID(ctx, userID, bson.M{"representative": rep}, nil)
	}
	return r.updateByID(ctx, userID, bson.M{}, bson.M{"representative": ""})
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	set := bson.M{}
	if patch.FirstName != nil {
		set["firstName"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["lastName"] = *patch.LastName
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Timezone != nil {
		set["timezone"] = *patch.Timezone
	}
	return r.updateByID(ctx, userID, set, nil)
}

func (r *UserRepo) SetPasswordReset(ctx context.Context, userID, token string, expires time.Time) error {
	_, err := r.updateByID(ctx, userID, bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": expires.UTC(),
	}, nil)
	return err
}

func (r *UserRepo) ClearPasswordReset(ctx context.Context, userID string) error {
	_, err := r.updateByID(ctx, userID, bson.M{}, bson.M{"passwordResetToken": "", "passwordResetExpires": ""})
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, hash string) error {
	_, err := r.updateByID(ctx, userID, bson.M{"password": hash},
		bson.M{"passwordResetToken": "", "passwordResetExpires": ""})
	return err
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	_, err := r.updateByID(ctx, userID, bson.M{"password": hash}, nil)
	return err
}

func (r *UserRepo) SetAdmin(ctx context.Context, email string, isAdmin bool) (domain.User, error) {
	u, err := r.update(ctx, bson.M{"email": domain.NormalizeEmail(email)}, bson.M{"isAdmin": isAdmin}, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return u, nil
}
