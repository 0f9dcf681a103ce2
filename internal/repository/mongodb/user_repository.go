package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

// Fields that never leave the store through a listing.
var hiddenUserFields = []string{"password", "passwordResetToken", "passwordResetExpires"}

type userDocument struct {
	ID                   string     `bson:"_id"`
	Name                 string     `bson:"name"`
	Email                string     `bson:"email"`
	Photo                string     `bson:"photo,omitempty"`
	Role                 string     `bson:"role"`
	Password             []byte     `bson:"password"`
	Active               bool       `bson:"active"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string     `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty"`
	CreatedAt            time.Time  `bson:"createdAt"`
}

func newUserDocument(u models.User) userDocument {
	return userDocument{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		Photo:                u.Photo,
		Role:                 string(u.Role),
		Password:             u.PasswordHash,
		Active:               u.Active,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.PasswordResetTokenHash,
		PasswordResetExpires: u.PasswordResetExpiresAt,
		CreatedAt:            u.CreatedAt,
	}
}

func (d userDocument) model() models.User {
	return models.User{
		ID:                     d.ID,
		Name:                   d.Name,
		Email:                  d.Email,
		Photo:                  d.Photo,
		Role:                   models.UserRole(d.Role),
		PasswordHash:           d.Password,
		Active:                 d.Active,
		PasswordChangedAt:      utcPtr(d.PasswordChangedAt),
		PasswordResetTokenHash: d.PasswordResetToken,
		PasswordResetExpiresAt: utcPtr(d.PasswordResetExpires),
		CreatedAt:              d.CreatedAt.UTC(),
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.coll.InsertOne(ctx, newUserDocument(user))
	return mapError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string, filters ...query.Filter) (models.User, error) {
	return r.findOne(ctx, byID(id, filterDoc(filters)))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error) {
	return r.findOne(ctx, bson.D{
		{Key: "passwordResetToken", Value: tokenHash},
		{Key: "passwordResetExpires", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "passwordResetToken", Value: tokenHash},
			{Key: "passwordResetExpires", Value: expiresAt},
		}},
	})
}

func (r *UserRepository) ClearPasswordReset(ctx context.Context, id string) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, unsetReset())
}

func (r *UserRepository) ConsumePasswordReset(ctx context.Context, id, tokenHash string, passwordHash []byte, changedAt, now time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "passwordResetToken", Value: tokenHash},
		{Key: "passwordResetExpires", Value: bson.D{{Key: "$gt", Value: now}}},
	}
	update := append(bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "passwordChangedAt", Value: changedAt},
		}},
	}, unsetReset()...)

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrResetTokenInvalid
	}
	return nil
}

func (r *UserRepository) SetPassword(ctx context.Context, id string, passwordHash []byte, changedAt time.Time) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "passwordChangedAt", Value: changedAt},
		}},
	})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user models.User) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: user.Name},
			{Key: "email", Value: user.Email},
			{Key: "photo", Value: user.Photo},
			{Key: "role", Value: string(user.Role)},
		}},
	})
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{
		{Key: "$set", Value: bson.D{{Key: "active", Value: active}}},
	})
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, spec query.Spec) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, filterDoc(spec.Filters), findOptions(spec, hiddenUserFields...))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.model())
	}
	return users, nil
}

func (r *UserRepository) PurgeExpiredResets(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.D{{Key: "passwordResetExpires", Value: bson.D{{Key: "$lte", Value: now}}}},
		unsetReset(),
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return models.User{}, mapError(err)
	}
	return doc.model(), nil
}

func (r *UserRepository) updateOne(ctx context.Context, filter, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func unsetReset() bson.D {
	return bson.D{{Key: "$unset", Value: bson.D{
		{Key: "passwordResetToken", Value: ""},
		{Key: "passwordResetExpires", Value: ""},
	}}}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
