package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/metrics"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
	"medcircle/internal/storage"
)

const (
	// MaxDocumentBytes bounds an uploaded credential file.
	MaxDocumentBytes = 10 << 20
	maxMessageRunes  = 2000
	maxReasonRunes   = 500
	documentURLTTL   = 10 * time.Minute
)

// ApplicationInput is what an applicant submits. At least one field must be set.
type ApplicationInput struct {
	Message  string
	Document *Upload
}

// TrustedService runs the trusted-professional verification workflow.
type TrustedService interface {
	Submit(ctx context.Context, applicant model.CurrentUser, in ApplicationInput) (*model.TrustedApplication, error)
	Review(ctx context.Context, appID string, approve bool, reviewer model.CurrentUser, reason string) (*model.TrustedApplication, error)
	Revoke(ctx context.Context, userID string, admin model.CurrentUser) error
	List(ctx context.Context, status model.ApplicationStatus, page, limit int) ([]model.TrustedApplication, int64, error)
	Mine(ctx context.Context, userID string) ([]model.TrustedApplication, error)
	DocumentURL(ctx context.Context, appID string, actor model.CurrentUser) (string, error)
}

type trustedService struct {
	tx      repository.TxRunner
	apps    repository.ApplicationRepository
	users   repository.UserRepository
	objects storage.ObjectStore
	cache   Cache
	pub     realtime.Publisher
}

// NewTrustedService builds a TrustedService.
func NewTrustedService(
	tx repository.TxRunner,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	objects storage.ObjectStore,
	cache Cache,
	pub realtime.Publisher,
) TrustedService {
	return &trustedService{tx: tx, apps: apps, users: users, objects: objects, cache: cache, pub: pub}
}

// Submit moves the applicant from none or rejected to pending.
func (s *trustedService) Submit(ctx context.Context, applicant model.CurrentUser, in ApplicationInput) (*model.TrustedApplication, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" && in.Document == nil {
		return nil, fmt.Errorf("%w: a message or a document is required", apperrors.ErrValidation)
	}
	if len([]rune(message)) > maxMessageRunes {
		return nil, fmt.Errorf("%w: message must be at most %d characters", apperrors.ErrValidation, maxMessageRunes)
	}
	if in.Document != nil && in.Document.Size > MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document must be at most 10 MiB", apperrors.ErrValidation)
	}

	user, err := s.users.FindByID(ctx, applicant.ID)
	if err != nil {
		return nil, err
	}
	if user.IsTrusted {
		return nil, apperrors.ErrAlreadyTrusted
	}
	pending, err := s.apps.FindPendingByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending application: %w", err)
	}
	if pending != nil {
		return nil, apperrors.ErrApplicationPending
	}

	app := &model.TrustedApplication{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserName:    user.DisplayName,
		Message:     message,
		Status:      model.ApplicationPending,
		SubmittedAt: time.Now().UTC(),
	}

	if in.Document != nil {
		contentType, body, err := sniff(in.Document.Reader)
		if err != nil {
			return nil, err
		}
		if contentType != "application/pdf" {
			return nil, fmt.Errorf("%w: document must be a PDF", apperrors.ErrValidation)
		}
		name := safeFilename(in.Document.Filename, "document.pdf")
		key := storage.ApplicationDocumentKey(user.ID, name)
		if err := s.objects.Put(ctx, key, body, in.Document.Size, contentType); err != nil {
			return nil, fmt.Errorf("store document: %w", err)
		}
		app.DocumentKey = key
		app.DocumentName = name
	}

	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.transitioned(ctx, user.ID, model.ApplicationPending)
	return app, nil
}

// Review approves or rejects a pending application. On approval the
// application and the user change in the same transaction.
func (s *trustedService) Review(ctx context.Context, appID string, approve bool, reviewer model.CurrentUser, reason string) (*model.TrustedApplication, error) {
	if !reviewer.IsAdmin {
		return nil, apperrors.ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > maxReasonRunes {
		return nil, fmt.Errorf("%w: reason must be at most %d characters", apperrors.ErrValidation, maxReasonRunes)
	}

	review := repository.Review{
		Status:       model.ApplicationRejected,
		ReviewedBy:   reviewer.ID,
		ReviewerName: reviewer.Name,
		At:           time.Now().UTC(),
	}
	if approve {
		review.Status = model.ApplicationApproved
	} else {
		review.Reason = reason
	}

	var app *model.TrustedApplication
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.apps.ApplyReview(ctx, appID, review)
		if err != nil {
			return err
		}
		if approve {
			return s.users.SetTrusted(ctx, app.UserID, reviewer.ID, reviewer.Name, review.At)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, app.UserID, review.Status)
	return app, nil
}

// Revoke clears trusted status and rejects every application the user has.
func (s *trustedService) Revoke(ctx context.Context, userID string, admin model.CurrentUser) error {
	if !admin.IsAdmin {
		return apperrors.ErrForbidden
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsTrusted {
			return fmt.Errorf("%w: user is not trusted", apperrors.ErrInvalidTransition)
		}
		if err := s.users.ClearTrusted(ctx, userID); err != nil {
			return err
		}
		_, err = s.apps.RejectAllForUser(ctx, userID, model.RevokedReason, time.Now().UTC())
		return err
	})
	if err != nil {
		return err
	}

	s.transitioned(ctx, userID, "revoked")
	return nil
}

func (s *trustedService) List(ctx context.Context, status model.ApplicationStatus, page, limit int) ([]model.TrustedApplication, int64, error) {
	switch status {
	case "", model.ApplicationPending, model.ApplicationApproved, model.ApplicationRejected:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, status)
	}
	page, limit = NormalizePage(page, limit)
	return s.apps.List(ctx, status, page, limit)
}

func (s *trustedService) Mine(ctx context.Context, userID string) ([]model.TrustedApplication, error) {
	return s.apps.ListByUser(ctx, userID)
}

// DocumentURL hands the applicant or an admin a short-lived download link.
func (s *trustedService) DocumentURL(ctx context.Context, appID string, actor model.CurrentUser) (string, error) {
	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		return "", err
	}
	if app.UserID != actor.ID && !actor.IsAdmin {
		return "", apperrors.ErrForbidden
	}
	if !app.HasDocument() {
		return "", fmt.Errorf("%w: application has no document", apperrors.ErrApplicationNotFound)
	}
	return s.objects.PresignedURL(ctx, app.DocumentKey, documentURLTTL)
}

func (s *trustedService) transitioned(ctx context.Context, userID string, to model.ApplicationStatus) {
	metrics.TrustedTransitions.WithLabelValues(string(to)).Inc()
	_ = s.cache.Delete(ctx, userCacheKey(userID))
	publish(ctx, s.pub, realtime.UserEvent(userID))
}
