package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medcircle/internal/db"
	"medcircle/internal/model"
)

// VoteRepository persists one vote per (item, user).
type VoteRepository interface {
	// Find returns nil, nil when the user has not voted.
	Find(ctx context.Context, ref model.ItemRef, userID string) (*model.Vote, error)
	Upsert(ctx context.Context, vote *model.Vote) error
	Delete(ctx context.Context, ref model.ItemRef, userID string) error
	DeleteForItem(ctx context.Context, ref model.ItemRef) error
}

type voteRepository struct {
	coll *mongo.Collection
}

// NewVoteRepository builds a MongoDB-backed repository.
func NewVoteRepository(database *mongo.Database) VoteRepository {
	return &voteRepository{coll: database.Collection(db.CollVotes)}
}

func (r *voteRepository) Find(ctx context.Context, ref model.ItemRef, userID string) (*model.Vote, error) {
	var vote model.Vote
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: model.VoteID(ref, userID)}}).Decode(&vote)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) Upsert(ctx context.Context, vote *model.Vote) error {
	vote.ID = model.VoteID(model.ItemRef{Kind: vote.ItemKind, ID: vote.ItemID}, vote.UserID)
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: vote.ID}}, vote, options.Replace().SetUpsert(true))
	return err
}

func (r *voteRepository) Delete(ctx context.Context, ref model.ItemRef, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: model.VoteID(ref, userID)}})
	return err
}

func (r *voteRepository) DeleteForItem(ctx context.Context, ref model.ItemRef) error {
	_, err := r.coll.DeleteMany(ctx, bson.D{
		{Key: "item_kind", Value: ref.Kind},
		{Key: "item_id", Value: ref.ID},
	})
	return err
}
