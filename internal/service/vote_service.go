package service

import (
	"context"
	"fmt"
	"time"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/metrics"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
)

// Vote outcomes, also used as metric labels.
const (
	VoteActionCast     = "cast"
	VoteActionSwitched = "switched"
	VoteActionRemoved  = "removed"
)

// VoteService manages exclusive likes/dislikes on items.
type VoteService interface {
	CastVote(ctx context.Context, ref model.ItemRef, userID string, voteType model.VoteType) (*model.Item, error)
	GetUserVote(ctx context.Context, ref model.ItemRef, userID string) (model.VoteType, error)
}

type voteService struct {
	tx    repository.TxRunner
	items repository.ItemRepository
	votes repository.VoteRepository
	cache Cache
	pub   realtime.Publisher
}

// NewVoteService builds a VoteService.
func NewVoteService(tx repository.TxRunner, items repository.ItemRepository, votes repository.VoteRepository, cache Cache, pub realtime.Publisher) VoteService {
	return &voteService{tx: tx, items: items, votes: votes, cache: cache, pub: pub}
}

// CastVote toggles or switches the user's vote. The vote document and both
// counters change in one transaction, so counters always match the votes.
func (s *voteService) CastVote(ctx context.Context, ref model.ItemRef, userID string, voteType model.VoteType) (*model.Item, error) {
	if !voteType.Valid() {
		return nil, apperrors.ErrInvalidVoteType
	}

	var action string
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.items.FindByID(ctx, ref); err != nil {
			return err
		}

		existing, err := s.votes.Find(ctx, ref, userID)
		if err != nil {
			return fmt.Errorf("read vote: %w", err)
		}

		deltas := map[string]int64{}
		switch {
		case existing != nil && existing.Type == voteType:
			if err := s.votes.Delete(ctx, ref, userID); err != nil {
				return fmt.Errorf("delete vote: %w", err)
			}
			deltas[string(voteType)] = -1
			action = VoteActionRemoved
		default:
			action = VoteActionCast
			if existing != nil {
				deltas[string(existing.Type)] = -1
				action = VoteActionSwitched
			}
			vote := &model.Vote{
				ItemKind:  ref.Kind,
				ItemID:    ref.ID,
				UserID:    userID,
				Type:      voteType,
				Timestamp: time.Now().UTC(),
			}
			if err := s.votes.Upsert(ctx, vote); err != nil {
				return fmt.Errorf("write vote: %w", err)
			}
			deltas[string(voteType)] = 1
		}

		return s.items.IncrementCounters(ctx, ref, deltas)
	})
	if err != nil {
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(ref.Kind), string(voteType), action).Inc()
	_ = s.cache.Delete(ctx, itemCacheKey(ref))
	publish(ctx, s.pub, realtime.ItemEvent(realtime.OpItemUpdated, ref))

	return s.items.FindByID(ctx, ref)
}

// GetUserVote returns the user's current vote type, or "" when none.
func (s *voteService) GetUserVote(ctx context.Context, ref model.ItemRef, userID string) (model.VoteType, error) {
	vote, err := s.votes.Find(ctx, ref, userID)
	if err != nil {
		return "", err
	}
	if vote == nil {
		return "", nil
	}
	return vote.Type, nil
}
