package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medcircle/internal/db"
	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
)

// Review is the outcome an admin records on a pending application.
type Review struct {
	Status       model.ApplicationStatus
	ReviewedBy   string
	ReviewerName string
	Reason       string
	At           time.Time
}

// ApplicationRepository persists trusted-status applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.TrustedApplication) error
	FindByID(ctx context.Context, id string) (*model.TrustedApplication, error)
	// FindPendingByUser returns nil, nil when the user has nothing pending.
	FindPendingByUser(ctx context.Context, userID string) (*model.TrustedApplication, error)
	ListByUser(ctx context.Context, userID string) ([]model.TrustedApplication, error)
	List(ctx context.Context, status model.ApplicationStatus, page, limit int) ([]model.TrustedApplication, int64, error)
	// ApplyReview only touches a pending application; anything else is ErrInvalidTransition.
	ApplyReview(ctx context.Context, id string, review Review) (*model.TrustedApplication, error)
	RejectAllForUser(ctx context.Context, userID, reason string, at time.Time) (int64, error)
}

type applicationRepository struct {
	coll *mongo.Collection
}

// NewApplicationRepository builds a MongoDB-backed repository.
func NewApplicationRepository(database *mongo.Database) ApplicationRepository {
	return &applicationRepository{coll: database.Collection(db.CollApplications)}
}

// Create relies on the partial unique index to reject a second pending application.
func (r *applicationRepository) Create(ctx context.Context, app *model.TrustedApplication) error {
	_, err := r.coll.InsertOne(ctx, app)
	return pendingConflict(err)
}

func pendingConflict(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.ErrApplicationPending
	}
	return err
}

func (r *applicationRepository) FindByID(ctx context.Context, id string) (*model.TrustedApplication, error) {
	var app model.TrustedApplication
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&app); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) FindPendingByUser(ctx context.Context, userID string) (*model.TrustedApplication, error) {
	var app model.TrustedApplication
	err := r.coll.FindOne(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "status", Value: model.ApplicationPending},
	}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID string) ([]model.TrustedApplication, error) {
	cur, err := r.coll.Find(ctx, bson.D{{Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	apps := []model.TrustedApplication{}
	if err := cur.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepository) List(ctx context.Context, status model.ApplicationStatus, page, limit int) ([]model.TrustedApplication, int64, error) {
	filter := bson.D{}
	if status != "" {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetSkip(int64((page-1)*limit)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, err
	}
	apps := []model.TrustedApplication{}
	if err := cur.All(ctx, &apps); err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *applicationRepository) ApplyReview(ctx context.Context, id string, review Review) (*model.TrustedApplication, error) {
	set := bson.D{
		{Key: "status", Value: review.Status},
		{Key: "reviewed_at", Value: review.At},
		{Key: "reviewed_by", Value: review.ReviewedBy},
		{Key: "reviewer_name", Value: review.ReviewerName},
	}
	if review.Reason != "" {
		set = append(set, bson.E{Key: "rejection_reason", Value: review.Reason})
	}

	var app model.TrustedApplication
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "status", Value: model.ApplicationPending}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, apperrors.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) RejectAllForUser(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: model.ApplicationRejected},
			{Key: "rejection_reason", Value: reason},
			{Key: "reviewed_at", Value: at},
		}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
