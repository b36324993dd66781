package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
)

type commentFixture struct {
	svc      CommentService
	items    *memItems
	comments *memComments
	pub      *recordingPublisher
	ref      model.ItemRef
}

func newCommentFixture() *commentFixture {
	ref := model.ItemRef{Kind: model.KindQuestion, ID: "q-1"}
	users := newMemUsers(
		&model.User{ID: "alice", Username: "alice"},
		&model.User{ID: "bob", Username: "bob"},
		&model.User{ID: "carol", Username: "carol"},
	)
	f := &commentFixture{
		items:    newMemItems(&model.Item{ID: ref.ID, Kind: ref.Kind}),
		comments: newMemComments(),
		pub:      &recordingPublisher{},
		ref:      ref,
	}
	f.svc = NewCommentService(&inlineTx{}, f.items, f.comments, users, noCache, NewWordFilter(), f.pub)
	return f
}

func TestCommentService_PostComment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		replyTo bool
		wantErr error
	}{
		{"empty", "   ", false, apperrors.ErrValidation},
		{"top-level at limit", strings.Repeat("ab", MaxCommentRunes/2), false, nil},
		{"top-level over limit", strings.Repeat("a", MaxCommentRunes+1), false, apperrors.ErrValidation},
		{"reply at limit", strings.Repeat("éa", MaxReplyRunes/2), true, nil},
		{"reply over limit", strings.Repeat("a", MaxReplyRunes+1), true, apperrors.ErrValidation},
		{"profanity", "what a load of bullshit", false, apperrors.ErrContentRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCommentFixture()
			ctx := context.Background()
			replyTo := ""
			if tt.replyTo {
				parent, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "bob"}, "parent", "")
				require.NoError(t, err)
				replyTo = parent.ID
			}
			before := len(f.comments.comments)

			_, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "alice"}, tt.content, replyTo)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, f.comments.comments, before)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, f.comments.comments, before+1)
		})
	}
}

func TestCommentService_RepliesFlattenToTopLevel(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	root, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "alice"}, "Try ice first.", "")
	require.NoError(t, err)
	reply, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "bob"}, "Agreed.", root.ID)
	require.NoError(t, err)
	nested, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "carol"}, "Why?", reply.ID)
	require.NoError(t, err)

	require.NotNil(t, nested.ReplyTo)
	assert.Equal(t, root.ID, nested.ReplyTo.CommentID)
	assert.Equal(t, "bob", nested.ReplyTo.Username)
	assert.Equal(t, int64(3), f.items.get(f.ref).CommentCount)

	threads, err := f.svc.ListComments(ctx, f.ref)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Len(t, threads[0].Replies, 2)
}

func TestCommentService_ReplyMustBeOnSameItem(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	other := model.ItemRef{Kind: model.KindPost, ID: "p-9"}
	require.NoError(t, f.items.Create(ctx, &model.Item{ID: other.ID, Kind: other.Kind}))

	foreign, err := f.svc.PostComment(ctx, other, model.CurrentUser{ID: "alice"}, "elsewhere", "")
	require.NoError(t, err)

	_, err = f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "bob"}, "reply", foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
	assert.Equal(t, int64(0), f.items.get(f.ref).CommentCount)
}

func TestCommentService_DeleteCascadesAndKeepsCount(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	root, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "alice"}, "root", "")
	require.NoError(t, err)
	_, err = f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "bob"}, "r1", root.ID)
	require.NoError(t, err)
	r2, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "carol"}, "r2", root.ID)
	require.NoError(t, err)
	_, err = f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "carol"}, "other", "")
	require.NoError(t, err)
	require.Equal(t, int64(4), f.items.get(f.ref).CommentCount)

	err = f.svc.DeleteComment(ctx, f.ref, r2.ID, model.CurrentUser{ID: "bob"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, f.svc.DeleteComment(ctx, f.ref, r2.ID, model.CurrentUser{ID: "carol"}))
	assert.Equal(t, int64(3), f.items.get(f.ref).CommentCount)

	require.NoError(t, f.svc.DeleteComment(ctx, f.ref, root.ID, model.CurrentUser{ID: "admin", IsAdmin: true}))
	assert.Equal(t, int64(1), f.items.get(f.ref).CommentCount)
	assert.Len(t, f.comments.comments, 1)
	assert.Contains(t, f.pub.ops(), realtime.OpCommentsUpdated)
}

func TestCommentService_EditComment(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	root, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "alice"}, "root", "")
	require.NoError(t, err)
	reply, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "bob"}, "reply", root.ID)
	require.NoError(t, err)

	_, err = f.svc.EditComment(ctx, f.ref, root.ID, "bob", "hijack")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.EditComment(ctx, f.ref, reply.ID, "bob", strings.Repeat("a", MaxReplyRunes+1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := f.svc.EditComment(ctx, f.ref, root.ID, "alice", "  edited  ")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
}

func TestCommentService_ToggleLikeIsASet(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	c, err := f.svc.PostComment(ctx, f.ref, model.CurrentUser{ID: "alice"}, "hello", "")
	require.NoError(t, err)

	liked, err := f.svc.ToggleLike(ctx, f.ref, c.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, liked.Likes)

	_, err = f.comments.AddLike(ctx, c.ID, "bob")
	require.NoError(t, err)
	assert.Len(t, f.comments.comments[c.ID].Likes, 1)

	unliked, err := f.svc.ToggleLike(ctx, f.ref, c.ID, "bob")
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)
}

func TestBuildThreadsOrdering(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	all := []model.Comment{
		{ID: "a", CreatedAt: at(0)},
		{ID: "b", CreatedAt: at(1)},
		{ID: "a2", CreatedAt: at(3), ReplyTo: &model.ReplyRef{CommentID: "a"}},
		{ID: "a1", CreatedAt: at(2), ReplyTo: &model.ReplyRef{CommentID: "a"}},
	}

	threads := buildThreads(all)
	require.Len(t, threads, 2)
	assert.Equal(t, "b", threads[0].ID)
	assert.Empty(t, threads[0].Replies)
	assert.Equal(t, "a", threads[1].ID)
	assert.Equal(t, "a1", threads[1].Replies[0].ID)
	assert.Equal(t, "a2", threads[1].Replies[1].ID)
}

func TestCommentService_ListMissingItem(t *testing.T) {
	f := newCommentFixture()
	_, err := f.svc.ListComments(context.Background(), model.ItemRef{Kind: model.KindPost, ID: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}
