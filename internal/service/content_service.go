package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
)

const (
	itemCacheTTL    = 30 * time.Second
	maxTitleRunes   = 200
	maxContentRunes = 10000
	maxTags         = 10
	maxTagRunes     = 30
)

// CreateItemInput is the user-supplied part of a new post or question.
type CreateItemInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}

// ContentService exposes post and question operations.
type ContentService interface {
	Create(ctx context.Context, kind model.ItemKind, author model.CurrentUser, in CreateItemInput) (*model.Item, error)
	List(ctx context.Context, filter model.ItemFilter) ([]model.Item, int64, error)
	Get(ctx context.Context, ref model.ItemRef) (*model.Item, error)
	// Fresh bypasses the cache; live streams use it to send authoritative snapshots.
	Fresh(ctx context.Context, ref model.ItemRef) (*model.Item, error)
	Delete(ctx context.Context, ref model.ItemRef, actor model.CurrentUser) error
}

type contentService struct {
	tx       repository.TxRunner
	items    repository.ItemRepository
	users    repository.UserRepository
	votes    repository.VoteRepository
	comments repository.CommentRepository
	cache    Cache
	filter   ContentFilter
	pub      realtime.Publisher
}

// NewContentService builds a ContentService.
func NewContentService(
	tx repository.TxRunner,
	items repository.ItemRepository,
	users repository.UserRepository,
	votes repository.VoteRepository,
	comments repository.CommentRepository,
	cache Cache,
	filter ContentFilter,
	pub realtime.Publisher,
) ContentService {
	return &contentService{
		tx:       tx,
		items:    items,
		users:    users,
		votes:    votes,
		comments: comments,
		cache:    cache,
		filter:   filter,
		pub:      pub,
	}
}

func itemCacheKey(ref model.ItemRef) string {
	return fmt.Sprintf("item:%s:%s", ref.Kind, ref.ID)
}

func (s *contentService) Create(ctx context.Context, kind model.ItemKind, author model.CurrentUser, in CreateItemInput) (*model.Item, error) {
	if _, err := model.ParseItemKind(string(kind)); err != nil {
		return nil, err
	}

	content, err := requireText("content", in.Content, maxContentRunes)
	if err != nil {
		return nil, err
	}
	item := &model.Item{
		ID:      uuid.NewString(),
		Kind:    kind,
		Content: content,
	}

	switch kind {
	case model.KindQuestion:
		if item.Title, err = requireText("title", in.Title, maxTitleRunes); err != nil {
			return nil, err
		}
		item.Category = strings.TrimSpace(in.Category)
	case model.KindPost:
		if item.Tags, err = normalizeTags(in.Tags); err != nil {
			return nil, err
		}
	}

	if err := s.filter.Check(item.Title + "\n" + item.Content); err != nil {
		return nil, err
	}

	profile, err := s.users.FindByID(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}

	now := time.Now().UTC()
	item.AuthorID = profile.ID
	item.Author = profile.Snapshot()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.UniqueViewers = []string{}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	return item, nil
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags", apperrors.ErrValidation, maxTags)
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if len([]rune(t)) > maxTagRunes {
			return nil, fmt.Errorf("%w: tag %q is too long", apperrors.ErrValidation, t)
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

func (s *contentService) List(ctx context.Context, filter model.ItemFilter) ([]model.Item, int64, error) {
	if _, err := model.ParseItemKind(string(filter.Kind)); err != nil {
		return nil, 0, err
	}
	switch filter.Sort {
	case model.SortNewest, model.SortPopular, model.SortViews:
	case "":
		filter.Sort = model.SortNewest
	default:
		return nil, 0, fmt.Errorf("%w: unknown sort %q", apperrors.ErrValidation, filter.Sort)
	}
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	filter.Page, filter.Limit = NormalizePage(filter.Page, filter.Limit)
	return s.items.List(ctx, filter)
}

func (s *contentService) Get(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	var cached model.Item
	if s.cache.GetJSON(ctx, itemCacheKey(ref), &cached) {
		return &cached, nil
	}

	item, err := s.items.FindByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, itemCacheKey(ref), item, itemCacheTTL)
	return item, nil
}

func (s *contentService) Fresh(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	return s.items.FindByID(ctx, ref)
}

// Delete removes the item together with its votes and comments.
func (s *contentService) Delete(ctx context.Context, ref model.ItemRef, actor model.CurrentUser) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		item, err := s.items.FindByID(ctx, ref)
		if err != nil {
			return err
		}
		if item.AuthorID != actor.ID && !actor.IsAdmin {
			return apperrors.ErrForbidden
		}
		if err := s.votes.DeleteForItem(ctx, ref); err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if err := s.comments.DeleteForItem(ctx, ref); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		return s.items.Delete(ctx, ref)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, itemCacheKey(ref))
	publish(ctx, s.pub, realtime.ItemEvent(realtime.OpItemDeleted, ref))
	return nil
}
