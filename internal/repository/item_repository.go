package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
)

// ItemRepository stores posts and questions. The kind selects the collection.
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, ref model.ItemRef) (*model.Item, error)
	Exists(ctx context.Context, ref model.ItemRef) (bool, error)
	List(ctx context.Context, filter model.ItemFilter) ([]model.Item, int64, error)
	Delete(ctx context.Context, ref model.ItemRef) error
	IncrementCounters(ctx context.Context, ref model.ItemRef, deltas map[string]int64) error
	RecordView(ctx context.Context, ref model.ItemRef, userID string, at time.Time) error
}

type itemRepository struct {
	db *mongo.Database
}

// NewItemRepository builds a MongoDB-backed repository.
func NewItemRepository(database *mongo.Database) ItemRepository {
	return &itemRepository{db: database}
}

func (r *itemRepository) coll(kind model.ItemKind) *mongo.Collection {
	return r.db.Collection(string(kind))
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	if item.UniqueViewers == nil {
		item.UniqueViewers = []string{}
	}
	_, err := r.coll(item.Kind).InsertOne(ctx, item)
	return err
}

func (r *itemRepository) FindByID(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	var item model.Item
	err := r.coll(ref.Kind).FindOne(ctx, bson.D{{Key: "_id", Value: ref.ID}}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Exists(ctx context.Context, ref model.ItemRef) (bool, error) {
	n, err := r.coll(ref.Kind).CountDocuments(ctx, bson.D{{Key: "_id", Value: ref.ID}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *itemRepository) List(ctx context.Context, f model.ItemFilter) ([]model.Item, int64, error) {
	filter := bson.D{}
	if f.Tag != "" {
		filter = append(filter, bson.E{Key: "tags", Value: f.Tag})
	}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.AuthorID != "" {
		filter = append(filter, bson.E{Key: "author_id", Value: f.AuthorID})
	}

	var order bson.D
	switch f.Sort {
	case model.SortPopular:
		order = bson.D{{Key: "likes", Value: -1}, {Key: "created_at", Value: -1}}
	case model.SortViews:
		order = bson.D{{Key: "views", Value: -1}, {Key: "created_at", Value: -1}}
	default:
		order = bson.D{{Key: "created_at", Value: -1}}
	}

	opts := options.Find().
		SetSort(order).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit)).
		SetProjection(bson.D{{Key: "viewer_last_seen", Value: 0}})

	coll := r.coll(f.Kind)
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	items := []model.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) Delete(ctx context.Context, ref model.ItemRef) error {
	res, err := r.coll(ref.Kind).DeleteOne(ctx, bson.D{{Key: "_id", Value: ref.ID}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrItemNotFound
	}
	return nil
}

// IncrementCounters applies $inc deltas (likes, dislikes, comment_count) in one update.
func (r *itemRepository) IncrementCounters(ctx context.Context, ref model.ItemRef, deltas map[string]int64) error {
	update := counterUpdate(deltas)
	if update == nil {
		return nil
	}
	res, err := r.coll(ref.Kind).UpdateByID(ctx, ref.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrItemNotFound
	}
	return nil
}

// RecordView bumps views and, for a known viewer, adds them to the unique set in the same update.
func (r *itemRepository) RecordView(ctx context.Context, ref model.ItemRef, userID string, at time.Time) error {
	res, err := r.coll(ref.Kind).UpdateByID(ctx, ref.ID, viewUpdate(userID, at))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrItemNotFound
	}
	return nil
}

// counterUpdate builds the $inc document with fields in a stable order, or nil when every delta is zero.
func counterUpdate(deltas map[string]int64) bson.D {
	fields := make([]string, 0, len(deltas))
	for field, delta := range deltas {
		if delta != 0 {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)

	inc := make(bson.D, 0, len(fields))
	for _, field := range fields {
		inc = append(inc, bson.E{Key: field, Value: deltas[field]})
	}
	return bson.D{{Key: "$inc", Value: inc}}
}

func viewUpdate(userID string, at time.Time) bson.D {
	set := bson.D{{Key: "last_viewed", Value: at}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}}
	if userID != "" {
		set = append(set, bson.E{Key: "viewer_last_seen." + userID, Value: at})
		update = append(update, bson.E{Key: "$addToSet", Value: bson.D{{Key: "unique_viewers", Value: userID}}})
	}
	return append(update, bson.E{Key: "$set", Value: set})
}
