package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"medcircle/internal/auth"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/service"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	return e
}

func asUser(c echo.Context, userID string, isAdmin bool) {
	c.Set(ClaimsKey, &auth.Claims{UserID: userID, Name: "User " + userID, IsAdmin: isAdmin})
}

// MockAuthService is a mock implementation of AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, in service.SignUpInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string, remember bool) (*service.Session, error) {
	args := m.Called(ctx, email, password, remember)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Session), args.Error(1)
}

func (m *MockAuthService) SignInWithGoogle(ctx context.Context, idToken string, remember bool) (*service.Session, error) {
	args := m.Called(ctx, idToken, remember)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Session), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) SignOut(ctx context.Context, refreshToken string, access *auth.Claims) error {
	args := m.Called(ctx, refreshToken, access)
	return args.Error(0)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, displayName, photoURL *string) (*model.User, error) {
	args := m.Called(ctx, id, displayName, photoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) UploadAvatar(ctx context.Context, id string, file service.Upload) (*model.User, error) {
	args := m.Called(ctx, id, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) PromoteAdmin(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockContentService is a mock implementation of ContentService.
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) Create(ctx context.Context, kind model.ItemKind, author model.CurrentUser, in service.CreateItemInput) (*model.Item, error) {
	args := m.Called(ctx, kind, author, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockContentService) List(ctx context.Context, filter model.ItemFilter) ([]model.Item, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Item), args.Get(1).(int64), args.Error(2)
}

func (m *MockContentService) Get(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockContentService) Fresh(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockContentService) Delete(ctx context.Context, ref model.ItemRef, actor model.CurrentUser) error {
	args := m.Called(ctx, ref, actor)
	return args.Error(0)
}

// MockViewService is a mock implementation of ViewService.
type MockViewService struct {
	mock.Mock
}

func (m *MockViewService) RecordView(ctx context.Context, ref model.ItemRef, userID string) error {
	args := m.Called(ctx, ref, userID)
	return args.Error(0)
}

func (m *MockViewService) RecordViewAsync(ref model.ItemRef, userID string) {
	m.Called(ref, userID)
}

func (m *MockViewService) Wait() {}

// MockVoteService is a mock implementation of VoteService.
type MockVoteService struct {
	mock.Mock
}

func (m *MockVoteService) CastVote(ctx context.Context, ref model.ItemRef, userID string, voteType model.VoteType) (*model.Item, error) {
	args := m.Called(ctx, ref, userID, voteType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockVoteService) GetUserVote(ctx context.Context, ref model.ItemRef, userID string) (model.VoteType, error) {
	args := m.Called(ctx, ref, userID)
	return args.Get(0).(model.VoteType), args.Error(1)
}

// MockCommentService is a mock implementation of CommentService.
type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) PostComment(ctx context.Context, ref model.ItemRef, author model.CurrentUser, content, replyTo string) (*model.Comment, error) {
	args := m.Called(ctx, ref, author, content, replyTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentService) EditComment(ctx context.Context, ref model.ItemRef, commentID, userID, content string) (*model.Comment, error) {
	args := m.Called(ctx, ref, commentID, userID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, ref model.ItemRef, commentID string, actor model.CurrentUser) error {
	args := m.Called(ctx, ref, commentID, actor)
	return args.Error(0)
}

func (m *MockCommentService) ToggleLike(ctx context.Context, ref model.ItemRef, commentID, userID string) (*model.Comment, error) {
	args := m.Called(ctx, ref, commentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentService) ListComments(ctx context.Context, ref model.ItemRef) ([]model.CommentThread, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CommentThread), args.Error(1)
}

// MockTrustedService is a mock implementation of TrustedService.
type MockTrustedService struct {
	mock.Mock
}

func (m *MockTrustedService) Submit(ctx context.Context, applicant model.CurrentUser, in service.ApplicationInput) (*model.TrustedApplication, error) {
	args := m.Called(ctx, applicant, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrustedApplication), args.Error(1)
}

func (m *MockTrustedService) Review(ctx context.Context, appID string, approve bool, reviewer model.CurrentUser, reason string) (*model.TrustedApplication, error) {
	args := m.Called(ctx, appID, approve, reviewer, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrustedApplication), args.Error(1)
}

func (m *MockTrustedService) Revoke(ctx context.Context, userID string, admin model.CurrentUser) error {
	args := m.Called(ctx, userID, admin)
	return args.Error(0)
}

func (m *MockTrustedService) List(ctx context.Context, status model.ApplicationStatus, page, limit int) ([]model.TrustedApplication, int64, error) {
	args := m.Called(ctx, status, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.TrustedApplication), args.Get(1).(int64), args.Error(2)
}

func (m *MockTrustedService) Mine(ctx context.Context, userID string) ([]model.TrustedApplication, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrustedApplication), args.Error(1)
}

func (m *MockTrustedService) DocumentURL(ctx context.Context, appID string, actor model.CurrentUser) (string, error) {
	args := m.Called(ctx, appID, actor)
	return args.String(0), args.Error(1)
}

// chanSubscriber hands out a prepared event channel.
type chanSubscriber struct {
	events   chan realtime.Event
	channels []string
}

func (s *chanSubscriber) Subscribe(ctx context.Context, channels ...string) (<-chan realtime.Event, error) {
	s.channels = channels
	return s.events, nil
}

var (
	_ service.AuthService    = (*MockAuthService)(nil)
	_ service.UserService    = (*MockUserService)(nil)
	_ service.ContentService = (*MockContentService)(nil)
	_ service.ViewService    = (*MockViewService)(nil)
	_ service.VoteService    = (*MockVoteService)(nil)
	_ service.CommentService = (*MockCommentService)(nil)
	_ service.TrustedService = (*MockTrustedService)(nil)
	_ realtime.Subscriber    = (*chanSubscriber)(nil)
)
