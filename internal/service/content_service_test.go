package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
)

type contentFixture struct {
	svc      ContentService
	items    *memItems
	votes    *memVotes
	comments *memComments
	pub      *recordingPublisher
}

func newContentFixture() *contentFixture {
	f := &contentFixture{
		items:    newMemItems(),
		votes:    newMemVotes(),
		comments: newMemComments(),
		pub:      &recordingPublisher{},
	}
	users := newMemUsers(&model.User{ID: "alice", DisplayName: "Alice", PhotoURL: "https://img/alice"})
	f.svc = NewContentService(&inlineTx{}, f.items, users, f.votes, f.comments, noCache, NewWordFilter(), f.pub)
	return f
}

func TestContentService_Create(t *testing.T) {
	author := model.CurrentUser{ID: "alice"}

	tests := []struct {
		name    string
		kind    model.ItemKind
		in      CreateItemInput
		wantErr error
	}{
		{"post", model.KindPost, CreateItemInput{Content: "Walking helped my knee", Tags: []string{"Knee", "knee", " rehab "}}, nil},
		{"question", model.KindQuestion, CreateItemInput{Title: "Is ibuprofen safe?", Content: "With my meds?", Category: "pharmacy"}, nil},
		{"question without title", model.KindQuestion, CreateItemInput{Content: "body"}, apperrors.ErrValidation},
		{"empty content", model.KindPost, CreateItemInput{Content: " "}, apperrors.ErrValidation},
		{"unknown kind", model.ItemKind("polls"), CreateItemInput{Content: "x"}, apperrors.ErrInvalidItemKind},
		{"rejected words", model.KindPost, CreateItemInput{Content: "you bastard"}, apperrors.ErrContentRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newContentFixture()
			item, err := f.svc.Create(context.Background(), tt.kind, author, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", item.AuthorID)
			assert.Equal(t, "Alice", item.Author.Name)
			assert.Equal(t, "https://img/alice", item.Author.PhotoURL)
			assert.Zero(t, item.Views)
			if tt.kind == model.KindPost {
				assert.Equal(t, []string{"knee", "rehab"}, item.Tags)
			}
		})
	}
}

func TestContentService_DeleteCascades(t *testing.T) {
	f := newContentFixture()
	ctx := context.Background()

	item, err := f.svc.Create(ctx, model.KindPost, model.CurrentUser{ID: "alice"}, CreateItemInput{Content: "hello"})
	require.NoError(t, err)
	ref := item.Ref()
	require.NoError(t, f.votes.Upsert(ctx, &model.Vote{ItemKind: ref.Kind, ItemID: ref.ID, UserID: "bob", Type: model.VoteLikes}))
	require.NoError(t, f.comments.Create(ctx, &model.Comment{ID: "c1", ItemKind: ref.Kind, ItemID: ref.ID}))

	err = f.svc.Delete(ctx, ref, model.CurrentUser{ID: "bob"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, ref, model.CurrentUser{ID: "alice"}))
	_, err = f.svc.Get(ctx, ref)
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
	assert.Empty(t, f.votes.votes)
	assert.Empty(t, f.comments.comments)
	assert.Equal(t, []string{realtime.OpItemDeleted}, f.pub.ops())
}

func TestContentService_ListNormalizesInput(t *testing.T) {
	f := newContentFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, model.KindPost, model.CurrentUser{ID: "alice"}, CreateItemInput{Content: "one"})
	require.NoError(t, err)

	items, total, err := f.svc.List(ctx, model.ItemFilter{Kind: model.KindPost, Page: -3, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	_, _, err = f.svc.List(ctx, model.ItemFilter{Kind: model.KindPost, Sort: "random"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, limit)

	_, limit = NormalizePage(2, 500)
	assert.Equal(t, maxPageSize, limit)
}
