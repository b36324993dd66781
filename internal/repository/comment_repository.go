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

// CommentRepository stores comments keyed by their item.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, ref model.ItemRef, id string) (*model.Comment, error)
	ListForItem(ctx context.Context, ref model.ItemRef) ([]model.Comment, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (*model.Comment, error)
	// Delete removes the comment and its replies and returns how many documents went.
	Delete(ctx context.Context, id string) (int64, error)
	DeleteForItem(ctx context.Context, ref model.ItemRef) error
	AddLike(ctx context.Context, id, userID string) (*model.Comment, error)
	RemoveLike(ctx context.Context, id, userID string) (*model.Comment, error)
}

type commentRepository struct {
	coll *mongo.Collection
}

// NewCommentRepository builds a MongoDB-backed repository.
func NewCommentRepository(database *mongo.Database) CommentRepository {
	return &commentRepository{coll: database.Collection(db.CollComments)}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if comment.Likes == nil {
		comment.Likes = []string{}
	}
	_, err := r.coll.InsertOne(ctx, comment)
	return err
}

func (r *commentRepository) FindByID(ctx context.Context, ref model.ItemRef, id string) (*model.Comment, error) {
	var c model.Comment
	err := r.coll.FindOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "item_kind", Value: ref.Kind},
		{Key: "item_id", Value: ref.ID},
	}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) ListForItem(ctx context.Context, ref model.ItemRef) ([]model.Comment, error) {
	cur, err := r.coll.Find(ctx, bson.D{
		{Key: "item_kind", Value: ref.Kind},
		{Key: "item_id", Value: ref.ID},
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	comments := []model.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (*model.Comment, error) {
	return r.findAndUpdate(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: content},
		{Key: "updated_at", Value: at},
	}}})
}

func (r *commentRepository) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "reply_to.comment_id", Value: id}},
	}}})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount == 0 {
		return 0, apperrors.ErrCommentNotFound
	}
	return res.DeletedCount, nil
}

func (r *commentRepository) DeleteForItem(ctx context.Context, ref model.ItemRef) error {
	_, err := r.coll.DeleteMany(ctx, bson.D{
		{Key: "item_kind", Value: ref.Kind},
		{Key: "item_id", Value: ref.ID},
	})
	return err
}

func (r *commentRepository) AddLike(ctx context.Context, id, userID string) (*model.Comment, error) {
	return r.findAndUpdate(ctx, id, likeUpdate(userID, true))
}

func (r *commentRepository) RemoveLike(ctx context.Context, id, userID string) (*model.Comment, error) {
	return r.findAndUpdate(ctx, id, likeUpdate(userID, false))
}

// likeUpdate treats likes as a set, so repeating either direction is a no-op.
func likeUpdate(userID string, like bool) bson.D {
	op := "$pull"
	if like {
		op = "$addToSet"
	}
	return bson.D{{Key: op, Value: bson.D{{Key: "likes", Value: userID}}}}
}

func (r *commentRepository) findAndUpdate(ctx context.Context, id string, update bson.D) (*model.Comment, error) {
	var c model.Comment
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, err
	}
	return &c, nil
}
