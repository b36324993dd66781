package service

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"medcircle/internal/cache"
	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
)

// inlineTx runs the callback directly; the in-memory fakes need no isolation.
type inlineTx struct{ calls int }

func (t *inlineTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// noCache is a nil redis wrapper, which reads as a permanent miss.
var noCache Cache = (*cache.Client)(nil)

// memCache keeps JSON values in a map and ignores TTLs.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) GetJSON(_ context.Context, key string, dst interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	return ok && json.Unmarshal(raw, dst) == nil
}

func (m *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Op)
	}
	return out
}

type memItems struct {
	mu    sync.Mutex
	items map[model.ItemRef]*model.Item
}

func newMemItems(items ...*model.Item) *memItems {
	m := &memItems{items: map[model.ItemRef]*model.Item{}}
	for _, it := range items {
		if it.UniqueViewers == nil {
			it.UniqueViewers = []string{}
		}
		m.items[it.Ref()] = it
	}
	return m
}

func (m *memItems) get(ref model.ItemRef) *model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.items[ref]
	return &cp
}

func (m *memItems) Create(ctx context.Context, item *model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.Ref()] = &cp
	return nil
}

func (m *memItems) FindByID(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[ref]
	if !ok {
		return nil, apperrors.ErrItemNotFound
	}
	cp := *it
	cp.UniqueViewers = append([]string(nil), it.UniqueViewers...)
	return &cp, nil
}

func (m *memItems) Exists(ctx context.Context, ref model.ItemRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[ref]
	return ok, nil
}

func (m *memItems) List(ctx context.Context, f model.ItemFilter) ([]model.Item, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Item{}
	for ref, it := range m.items {
		if ref.Kind == f.Kind {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memItems) Delete(ctx context.Context, ref model.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[ref]; !ok {
		return apperrors.ErrItemNotFound
	}
	delete(m.items, ref)
	return nil
}

func (m *memItems) IncrementCounters(ctx context.Context, ref model.ItemRef, deltas map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[ref]
	if !ok {
		return apperrors.ErrItemNotFound
	}
	it.Likes += deltas["likes"]
	it.Dislikes += deltas["dislikes"]
	it.CommentCount += deltas["comment_count"]
	return nil
}

func (m *memItems) RecordView(ctx context.Context, ref model.ItemRef, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[ref]
	if !ok {
		return apperrors.ErrItemNotFound
	}
	it.Views++
	it.LastViewed = &at
	if userID != "" {
		found := false
		for _, v := range it.UniqueViewers {
			if v == userID {
				found = true
			}
		}
		if !found {
			it.UniqueViewers = append(it.UniqueViewers, userID)
		}
		if it.ViewerLastSeen == nil {
			it.ViewerLastSeen = map[string]time.Time{}
		}
		it.ViewerLastSeen[userID] = at
	}
	return nil
}

type memVotes struct {
	votes map[string]model.Vote
}

func newMemVotes() *memVotes { return &memVotes{votes: map[string]model.Vote{}} }

func (m *memVotes) Find(ctx context.Context, ref model.ItemRef, userID string) (*model.Vote, error) {
	v, ok := m.votes[model.VoteID(ref, userID)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *memVotes) Upsert(ctx context.Context, vote *model.Vote) error {
	vote.ID = model.VoteID(model.ItemRef{Kind: vote.ItemKind, ID: vote.ItemID}, vote.UserID)
	m.votes[vote.ID] = *vote
	return nil
}

func (m *memVotes) Delete(ctx context.Context, ref model.ItemRef, userID string) error {
	delete(m.votes, model.VoteID(ref, userID))
	return nil
}

func (m *memVotes) DeleteForItem(ctx context.Context, ref model.ItemRef) error {
	for id, v := range m.votes {
		if v.ItemKind == ref.Kind && v.ItemID == ref.ID {
			delete(m.votes, id)
		}
	}
	return nil
}

type memComments struct {
	comments map[string]*model.Comment
}

func newMemComments() *memComments { return &memComments{comments: map[string]*model.Comment{}} }

func (m *memComments) Create(ctx context.Context, c *model.Comment) error {
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *memComments) FindByID(ctx context.Context, ref model.ItemRef, id string) (*model.Comment, error) {
	c, ok := m.comments[id]
	if !ok || c.ItemKind != ref.Kind || c.ItemID != ref.ID {
		return nil, apperrors.ErrCommentNotFound
	}
	cp := *c
	cp.Likes = append([]string{}, c.Likes...)
	return &cp, nil
}

func (m *memComments) ListForItem(ctx context.Context, ref model.ItemRef) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, c := range m.comments {
		if c.ItemKind == ref.Kind && c.ItemID == ref.ID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memComments) UpdateContent(ctx context.Context, id, content string, at time.Time) (*model.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, apperrors.ErrCommentNotFound
	}
	c.Content = content
	c.UpdatedAt = at
	cp := *c
	return &cp, nil
}

func (m *memComments) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.comments[id]; !ok {
		return 0, apperrors.ErrCommentNotFound
	}
	var n int64
	for cid, c := range m.comments {
		if cid == id || (c.ReplyTo != nil && c.ReplyTo.CommentID == id) {
			delete(m.comments, cid)
			n++
		}
	}
	return n, nil
}

func (m *memComments) DeleteForItem(ctx context.Context, ref model.ItemRef) error {
	for id, c := range m.comments {
		if c.ItemKind == ref.Kind && c.ItemID == ref.ID {
			delete(m.comments, id)
		}
	}
	return nil
}

func (m *memComments) AddLike(ctx context.Context, id, userID string) (*model.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, apperrors.ErrCommentNotFound
	}
	if !c.LikedBy(userID) {
		c.Likes = append(c.Likes, userID)
	}
	cp := *c
	cp.Likes = append([]string{}, c.Likes...)
	return &cp, nil
}

func (m *memComments) RemoveLike(ctx context.Context, id, userID string) (*model.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, apperrors.ErrCommentNotFound
	}
	kept := []string{}
	for _, u := range c.Likes {
		if u != userID {
			kept = append(kept, u)
		}
	}
	c.Likes = kept
	cp := *c
	cp.Likes = append([]string{}, kept...)
	return &cp, nil
}

type memUsers struct {
	users map[string]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *memUsers) UpdateProfile(ctx context.Context, id string, upd repository.ProfileUpdate) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetTrusted(ctx context.Context, id, verifiedBy, verifierName string, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.IsTrusted = true
	u.TrustedSince = &at
	u.VerifiedBy = verifiedBy
	u.VerifierName = verifierName
	return nil
}

func (m *memUsers) ClearTrusted(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.IsTrusted = false
	u.TrustedSince = nil
	u.VerifiedBy = ""
	u.VerifierName = ""
	return nil
}

func (m *memUsers) SetAdmin(ctx context.Context, id string, admin bool) error {
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.IsAdmin = admin
	return nil
}

type memApps struct {
	apps map[string]*model.TrustedApplication
}

func newMemApps() *memApps { return &memApps{apps: map[string]*model.TrustedApplication{}} }

// Create mimics the partial unique index on pending applications.
func (m *memApps) Create(ctx context.Context, app *model.TrustedApplication) error {
	for _, a := range m.apps {
		if a.UserID == app.UserID && a.Status == model.ApplicationPending {
			return apperrors.ErrApplicationPending
		}
	}
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *memApps) FindByID(ctx context.Context, id string) (*model.TrustedApplication, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memApps) FindPendingByUser(ctx context.Context, userID string) (*model.TrustedApplication, error) {
	for _, a := range m.apps {
		if a.UserID == userID && a.Status == model.ApplicationPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memApps) ListByUser(ctx context.Context, userID string) ([]model.TrustedApplication, error) {
	out := []model.TrustedApplication{}
	for _, a := range m.apps {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memApps) List(ctx context.Context, status model.ApplicationStatus, page, limit int) ([]model.TrustedApplication, int64, error) {
	out := []model.TrustedApplication{}
	for _, a := range m.apps {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memApps) ApplyReview(ctx context.Context, id string, review repository.Review) (*model.TrustedApplication, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	if a.Status != model.ApplicationPending {
		return nil, apperrors.ErrInvalidTransition
	}
	a.Status = review.Status
	a.ReviewedAt = &review.At
	a.ReviewedBy = review.ReviewedBy
	a.ReviewerName = review.ReviewerName
	if review.Reason != "" {
		a.RejectionReason = review.Reason
	}
	cp := *a
	return &cp, nil
}

func (m *memApps) RejectAllForUser(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	var n int64
	for _, a := range m.apps {
		if a.UserID == userID {
			a.Status = model.ApplicationRejected
			a.RejectionReason = reason
			a.ReviewedAt = &at
			n++
		}
	}
	return n, nil
}

type memObjects struct {
	objects map[string][]byte
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://files.test/" + key + "?signed=1", nil
}

func (m *memObjects) PublicURL(key string) string {
	return "https://files.test/" + key
}

var (
	_ repository.TxRunner              = (*inlineTx)(nil)
	_ repository.ItemRepository        = (*memItems)(nil)
	_ repository.VoteRepository        = (*memVotes)(nil)
	_ repository.CommentRepository     = (*memComments)(nil)
	_ repository.UserRepository        = (*memUsers)(nil)
	_ repository.ApplicationRepository = (*memApps)(nil)
)
