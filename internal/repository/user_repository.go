package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"medcircle/internal/db"
	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
)

// ProfileUpdate carries the optional profile fields a user may change.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// UserRepository defines persistence operations for profile documents.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*model.User, error)
	SetTrusted(ctx context.Context, id, verifiedBy, verifierName string, at time.Time) error
	ClearTrusted(ctx context.Context, id string) error
	SetAdmin(ctx context.Context, id string, admin bool) error
}

type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository builds a MongoDB-backed repository.
func NewUserRepository(database *mongo.Database) UserRepository {
	return &userRepository{coll: database.Collection(db.CollUsers)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var user model.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*model.User, error) {
	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}
	if upd.DisplayName != nil {
		set = append(set, bson.E{Key: "display_name", Value: *upd.DisplayName})
	}
	if upd.PhotoURL != nil {
		set = append(set, bson.E{Key: "photo_url", Value: *upd.PhotoURL})
	}
	if err := r.update(ctx, id, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *userRepository) SetTrusted(ctx context.Context, id, verifiedBy, verifierName string, at time.Time) error {
	return r.update(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_trusted", Value: true},
		{Key: "trusted_since", Value: at},
		{Key: "verified_by", Value: verifiedBy},
		{Key: "verifier_name", Value: verifierName},
		{Key: "updated_at", Value: at},
	}}})
}

func (r *userRepository) ClearTrusted(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "is_trusted", Value: false},
			{Key: "updated_at", Value: time.Now().UTC()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "trusted_since", Value: ""},
			{Key: "verified_by", Value: ""},
			{Key: "verifier_name", Value: ""},
		}},
	})
}

func (r *userRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	return r.update(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_admin", Value: admin},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
}

func (r *userRepository) update(ctx context.Context, id string, update bson.D) error {
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
