package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"medcircle/internal/auth"
	apperrors "medcircle/internal/errors"
	"medcircle/internal/logging"
	"medcircle/internal/model"
	"medcircle/internal/repository"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
	maxNameRunes      = 80
	usernameAttempts  = 5
)

var (
	usernamePattern    = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
	usernameDisallowed = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// SignUpInput is the data needed to open a password account.
type SignUpInput struct {
	Email       string
	Password    string
	Username    string
	DisplayName string
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	Persistence  string      `json:"persistence"`
	User         *model.User `json:"user"`
}

// AuthService is the identity gateway: accounts, sessions and password recovery.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*model.User, error)
	SignIn(ctx context.Context, email, password string, remember bool) (*Session, error)
	SignInWithGoogle(ctx context.Context, idToken string, remember bool) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	SignOut(ctx context.Context, refreshToken string, access *auth.Claims) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	// UsernameAvailable is advisory; SignUp's reservation is what actually claims a name.
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

type authService struct {
	identities repository.IdentityRepository
	usernames  repository.UsernameRepository
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	google     auth.GoogleVerifier
	mailer     auth.Mailer
	publicURL  string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	identities repository.IdentityRepository,
	usernames repository.UsernameRepository,
	users repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	google auth.GoogleVerifier,
	mailer auth.Mailer,
	publicURL string,
) AuthService {
	return &authService{
		identities: identities,
		usernames:  usernames,
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		google:     google,
		mailer:     mailer,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp reserves the username before anything else exists, so a taken name
// never leaves an orphaned credential behind. Later failures undo earlier steps.
func (s *authService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-30 letters, digits or underscores", apperrors.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}
	displayName, err := requireText("display name", in.DisplayName, maxNameRunes)
	if err != nil {
		return nil, err
	}

	userID := uuid.NewString()
	if err := s.usernames.Reserve(ctx, username, userID); err != nil {
		return nil, err
	}

	if _, err := s.identities.FindByEmail(ctx, email); err == nil {
		s.releaseUsername(ctx, username)
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrIdentityNotFound) {
		s.releaseUsername(ctx, username)
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		s.releaseUsername(ctx, username)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity := &model.AuthIdentity{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Provider:     model.ProviderPassword,
	}
	return s.provision(ctx, identity, username, displayName, "")
}

// provision stores the identity and then the profile, compensating on failure.
// The username must already be reserved for identity.UserID.
func (s *authService) provision(ctx context.Context, identity *model.AuthIdentity, username, displayName, photoURL string) (*model.User, error) {
	if err := s.identities.Create(ctx, identity); err != nil {
		s.releaseUsername(ctx, username)
		if errors.Is(err, apperrors.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:          identity.UserID,
		DisplayName: displayName,
		Username:    username,
		Email:       identity.Email,
		PhotoURL:    photoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if delErr := s.identities.Delete(ctx, identity.ID); delErr != nil {
			logging.Logger.Error().Err(delErr).Str("identity_id", identity.ID.String()).Msg("compensate identity")
		}
		s.releaseUsername(ctx, username)
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return user, nil
}

func (s *authService) releaseUsername(ctx context.Context, username string) {
	if err := s.usernames.Release(context.WithoutCancel(ctx), username); err != nil {
		logging.Logger.Error().Err(err).Str("username", username).Msg("release username reservation")
	}
}

// SignIn authenticates with email and password.
func (s *authService) SignIn(ctx context.Context, email, password string, remember bool) (*Session, error) {
	identity, err := s.identities.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if identity.PasswordHash == "" {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return s.issueSession(ctx, user, auth.PersistenceFor(remember))
}

// SignInWithGoogle verifies a Google ID token. The first sign-in provisions a
// profile with a derived username; a verified email matching an existing
// account signs into that account.
func (s *authService) SignInWithGoogle(ctx context.Context, idToken string, remember bool) (*Session, error) {
	gid, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFederatedToken, err)
	}

	identity, err := s.identities.FindByProviderSubject(ctx, model.ProviderGoogle, gid.Subject)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		identity, err = s.identities.FindByEmail(ctx, normalizeEmail(gid.Email))
		if err == nil && !gid.EmailVerified {
			return nil, fmt.Errorf("%w: email not verified", apperrors.ErrFederatedToken)
		}
	}

	var user *model.User
	switch {
	case err == nil:
		user, err = s.users.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
	case errors.Is(err, repository.ErrIdentityNotFound):
		user, err = s.provisionGoogle(ctx, gid)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find identity: %w", err)
	}

	return s.issueSession(ctx, user, auth.PersistenceFor(remember))
}

func (s *authService) provisionGoogle(ctx context.Context, gid *auth.GoogleIdentity) (*model.User, error) {
	userID := uuid.NewString()
	username, err := s.reserveDerivedUsername(ctx, gid.Email, userID)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(gid.Name)
	if displayName == "" {
		displayName = username
	}
	identity := &model.AuthIdentity{
		UserID:          userID,
		Email:           normalizeEmail(gid.Email),
		Provider:        model.ProviderGoogle,
		ProviderSubject: gid.Subject,
	}
	return s.provision(ctx, identity, username, displayName, gid.Picture)
}

// reserveDerivedUsername builds a username from the email's local part and
// appends a short random suffix until one is free.
func (s *authService) reserveDerivedUsername(ctx context.Context, email, userID string) (string, error) {
	base := strings.Split(email, "@")[0]
	base = usernameDisallowed.ReplaceAllString(base, "")
	if len(base) < 3 {
		base = "member" + base
	}
	if len(base) > 24 {
		base = base[:24]
	}

	candidate := base
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		err := s.usernames.Reserve(ctx, candidate, userID)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, apperrors.ErrUsernameTaken) {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%s", base, randomHex(2))
	}
	return "", apperrors.ErrUsernameTaken
}

func (s *authService) issueSession(ctx context.Context, user *model.User, persistence string) (*Session, error) {
	sub := auth.Subject{UserID: user.ID, Email: user.Email, Name: user.DisplayName, IsAdmin: user.IsAdmin}

	accessToken, err := s.jwtService.GenerateAccessToken(sub)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(sub, persistence)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rec := auth.RefreshRecord{UserID: user.ID, Persistence: persistence}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, rec, auth.RefreshTTL(persistence)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(auth.AccessTokenExpiry.Seconds()),
		Persistence:  persistence,
		User:         user,
	}, nil
}

// Refresh validates a refresh token and returns a new access token.
// Admin status is re-read from the profile so demotions apply on the next refresh.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}

	rec, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || rec.UserID != claims.UserID {
		return "", apperrors.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return "", apperrors.ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("load profile: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(auth.Subject{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.DisplayName,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// SignOut revokes the refresh token and blacklists the presented access token until it expires.
func (s *authService) SignOut(ctx context.Context, refreshToken string, access *auth.Claims) error {
	if refreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
		if err != nil {
			return apperrors.ErrInvalidRefreshToken
		}
		if access != nil && claims.UserID != access.UserID {
			return apperrors.ErrForbidden
		}
		if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}

	if access != nil && access.ID != "" {
		if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, access.Remaining()); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	return nil
}

// RequestPasswordReset never reveals whether the email is registered.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	identity, err := s.identities.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrIdentityNotFound) {
			logging.Logger.Error().Err(err).Msg("password reset lookup")
		}
		return nil
	}
	if identity.Provider != model.ProviderPassword {
		return nil
	}

	token := randomHex(32)
	if err := s.tokenStore.StorePasswordReset(ctx, token, identity.ID.String(), auth.PasswordResetExpiry); err != nil {
		logging.Logger.Error().Err(err).Msg("store password reset token")
		return nil
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.publicURL, token)
	if err := s.mailer.SendPasswordReset(ctx, identity.Email, link); err != nil {
		logging.Logger.Error().Err(err).Msg("send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}

	identityID, err := s.tokenStore.ConsumePasswordReset(ctx, token)
	if err != nil {
		return apperrors.ErrInvalidResetToken
	}
	id, err := uuid.Parse(identityID)
	if err != nil {
		return apperrors.ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.identities.UpdatePasswordHash(ctx, id, string(hashed)); err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *authService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return false, fmt.Errorf("%w: username must be 3-30 letters, digits or underscores", apperrors.ErrValidation)
	}
	taken, err := s.usernames.Exists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !taken, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:n*2]
	}
	return hex.EncodeToString(b)
}
