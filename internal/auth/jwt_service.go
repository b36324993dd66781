package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = 15 * time.Minute
	// RefreshTokenExpiry is the refresh lifetime for "local" persistence (remember me).
	RefreshTokenExpiry = 30 * 24 * time.Hour
	// SessionTokenExpiry is the refresh lifetime for "session" persistence.
	SessionTokenExpiry = 12 * time.Hour
)

// Session persistence modes chosen at sign-in.
const (
	PersistenceLocal   = "local"
	PersistenceSession = "session"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	errUnexpectedMethod = errors.New("unexpected signing method")
	errInvalidToken     = errors.New("invalid token")
	errWrongTokenType   = errors.New("wrong token type")
)

// PersistenceFor maps the remember flag to a persistence mode.
func PersistenceFor(remember bool) string {
	if remember {
		return PersistenceLocal
	}
	return PersistenceSession
}

// RefreshTTL returns the refresh token lifetime for a persistence mode.
func RefreshTTL(persistence string) time.Duration {
	if persistence == PersistenceLocal {
		return RefreshTokenExpiry
	}
	return SessionTokenExpiry
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID  string
	Email   string
	Name    string
	IsAdmin bool
}

// Claims represents JWT claims.
type Claims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
	TokenType   string `json:"typ"`
	Persistence string `json:"persistence,omitempty"`
	jwt.RegisteredClaims
}

// Remaining returns how long the token stays valid.
func (c *Claims) Remaining() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := time.Until(c.ExpiresAt.Time)
	if d < 0 {
		return 0
	}
	return d
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
	}
}

// GenerateAccessToken generates a new access token for the subject.
// Access tokens carry a JTI so sign-out can blacklist them.
func (s *JWTService) GenerateAccessToken(sub Subject) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    sub.UserID,
		Email:     sub.Email,
		Name:      sub.Name,
		IsAdmin:   sub.IsAdmin,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        generateTokenID(),
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// GenerateRefreshToken generates a new refresh token for the subject.
// The refresh token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(sub Subject, persistence string) (tokenID string, token string, err error) {
	if persistence != PersistenceLocal {
		persistence = PersistenceSession
	}
	now := time.Now()
	tokenID = generateTokenID()
	claims := &Claims{
		UserID:      sub.UserID,
		Email:       sub.Email,
		TokenType:   tokenTypeRefresh,
		Persistence: persistence,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL(persistence))),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = tokenObj.SignedString(s.secret)
	return tokenID, token, err
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedMethod
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}

	return claims, nil
}

// ValidateAccessToken validates a token and requires it to be an access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, errWrongTokenType
	}
	return claims, nil
}

// ValidateRefreshToken validates a token and requires it to be a refresh token with a JTI.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, errWrongTokenType
	}
	if claims.ID == "" {
		return nil, errors.New("token ID not found")
	}
	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}
