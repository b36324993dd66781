package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/metrics"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
)

const (
	// MaxCommentRunes bounds a top-level comment or answer.
	MaxCommentRunes = 2000
	// MaxReplyRunes bounds a reply.
	MaxReplyRunes = 500
)

// CommentService manages comments, answers and replies on items.
type CommentService interface {
	PostComment(ctx context.Context, ref model.ItemRef, author model.CurrentUser, content, replyTo string) (*model.Comment, error)
	EditComment(ctx context.Context, ref model.ItemRef, commentID, userID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, ref model.ItemRef, commentID string, actor model.CurrentUser) error
	ToggleLike(ctx context.Context, ref model.ItemRef, commentID, userID string) (*model.Comment, error)
	ListComments(ctx context.Context, ref model.ItemRef) ([]model.CommentThread, error)
}

type commentService struct {
	tx       repository.TxRunner
	items    repository.ItemRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	cache    Cache
	filter   ContentFilter
	pub      realtime.Publisher
}

// NewCommentService builds a CommentService.
func NewCommentService(
	tx repository.TxRunner,
	items repository.ItemRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	cache Cache,
	filter ContentFilter,
	pub realtime.Publisher,
) CommentService {
	return &commentService{
		tx:       tx,
		items:    items,
		comments: comments,
		users:    users,
		cache:    cache,
		filter:   filter,
		pub:      pub,
	}
}

func commentLimit(isReply bool) int {
	if isReply {
		return MaxReplyRunes
	}
	return MaxCommentRunes
}

// PostComment validates before touching storage. A reply to a reply is
// re-pointed at the top-level comment but keeps the replied-to username.
func (s *commentService) PostComment(ctx context.Context, ref model.ItemRef, author model.CurrentUser, content, replyTo string) (*model.Comment, error) {
	content, err := requireText("content", content, commentLimit(replyTo != ""))
	if err != nil {
		return nil, err
	}
	if err := s.filter.Check(content); err != nil {
		return nil, err
	}

	profile, err := s.users.FindByID(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}

	var comment *model.Comment
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.items.FindByID(ctx, ref); err != nil {
			return err
		}

		now := time.Now().UTC()
		comment = &model.Comment{
			ID:        uuid.NewString(),
			ItemKind:  ref.Kind,
			ItemID:    ref.ID,
			Content:   content,
			UserID:    profile.ID,
			Username:  profile.Username,
			PhotoURL:  profile.PhotoURL,
			CreatedAt: now,
			UpdatedAt: now,
			Likes:     []string{},
		}

		if replyTo != "" {
			parent, err := s.comments.FindByID(ctx, ref, replyTo)
			if err != nil {
				return err
			}
			rootID := parent.ID
			if parent.ReplyTo != nil {
				rootID = parent.ReplyTo.CommentID
			}
			comment.ReplyTo = &model.ReplyRef{CommentID: rootID, Username: parent.Username}
		}

		if err := s.comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return s.items.IncrementCounters(ctx, ref, map[string]int64{"comment_count": 1})
	})
	if err != nil {
		return nil, err
	}

	metrics.CommentsTotal.WithLabelValues("created").Inc()
	s.announce(ctx, ref, true)
	return comment, nil
}

func (s *commentService) EditComment(ctx context.Context, ref model.ItemRef, commentID, userID, content string) (*model.Comment, error) {
	existing, err := s.comments.FindByID(ctx, ref, commentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, apperrors.ErrForbidden
	}

	content, err = requireText("content", content, commentLimit(existing.IsReply()))
	if err != nil {
		return nil, err
	}
	if err := s.filter.Check(content); err != nil {
		return nil, err
	}

	updated, err := s.comments.UpdateContent(ctx, commentID, content, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.CommentsTotal.WithLabelValues("edited").Inc()
	s.announce(ctx, ref, false)
	return updated, nil
}

// DeleteComment removes the comment and, for a top-level comment, its replies.
// comment_count drops by the number of documents removed in the same transaction.
func (s *commentService) DeleteComment(ctx context.Context, ref model.ItemRef, commentID string, actor model.CurrentUser) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.comments.FindByID(ctx, ref, commentID)
		if err != nil {
			return err
		}
		if existing.UserID != actor.ID && !actor.IsAdmin {
			return apperrors.ErrForbidden
		}

		removed, err := s.comments.Delete(ctx, commentID)
		if err != nil {
			return err
		}
		return s.items.IncrementCounters(ctx, ref, map[string]int64{"comment_count": -removed})
	})
	if err != nil {
		return err
	}

	metrics.CommentsTotal.WithLabelValues("deleted").Inc()
	s.announce(ctx, ref, true)
	return nil
}

// ToggleLike adds or removes userID from the like set. Set operators keep it duplicate-free.
func (s *commentService) ToggleLike(ctx context.Context, ref model.ItemRef, commentID, userID string) (*model.Comment, error) {
	existing, err := s.comments.FindByID(ctx, ref, commentID)
	if err != nil {
		return nil, err
	}

	var updated *model.Comment
	if existing.LikedBy(userID) {
		updated, err = s.comments.RemoveLike(ctx, commentID, userID)
		metrics.CommentsTotal.WithLabelValues("unliked").Inc()
	} else {
		updated, err = s.comments.AddLike(ctx, commentID, userID)
		metrics.CommentsTotal.WithLabelValues("liked").Inc()
	}
	if err != nil {
		return nil, err
	}

	s.announce(ctx, ref, false)
	return updated, nil
}

// ListComments returns top-level comments newest first, each with its replies oldest first.
func (s *commentService) ListComments(ctx context.Context, ref model.ItemRef) ([]model.CommentThread, error) {
	exists, err := s.items.Exists(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrItemNotFound
	}

	all, err := s.comments.ListForItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	return buildThreads(all), nil
}

func buildThreads(all []model.Comment) []model.CommentThread {
	replies := make(map[string][]model.Comment)
	threads := []model.CommentThread{}
	for _, c := range all {
		if c.ReplyTo != nil {
			replies[c.ReplyTo.CommentID] = append(replies[c.ReplyTo.CommentID], c)
			continue
		}
		threads = append(threads, model.CommentThread{Comment: c})
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].CreatedAt.After(threads[j].CreatedAt)
	})
	for i := range threads {
		rs := replies[threads[i].ID]
		sort.SliceStable(rs, func(a, b int) bool {
			return rs[a].CreatedAt.Before(rs[b].CreatedAt)
		})
		if rs == nil {
			rs = []model.Comment{}
		}
		threads[i].Replies = rs
	}
	return threads
}

func (s *commentService) announce(ctx context.Context, ref model.ItemRef, countChanged bool) {
	events := []realtime.Event{realtime.ItemEvent(realtime.OpCommentsUpdated, ref)}
	if countChanged {
		_ = s.cache.Delete(ctx, itemCacheKey(ref))
		events = append(events, realtime.ItemEvent(realtime.OpItemUpdated, ref))
	}
	publish(ctx, s.pub, events...)
}
