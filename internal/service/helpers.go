package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/logging"
	"medcircle/internal/realtime"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// Cache is the cache-aside surface the services use.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NormalizePage clamps paging input to sane bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// requireText trims s and enforces non-empty and a rune limit.
func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", apperrors.ErrValidation, field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", fmt.Errorf("%w: %s must be at most %d characters", apperrors.ErrValidation, field, max)
	}
	return s, nil
}

// publish announces committed changes. The write already succeeded, so failures are only logged.
func publish(ctx context.Context, pub realtime.Publisher, events ...realtime.Event) {
	if pub == nil {
		return
	}
	for _, evt := range events {
		if err := pub.Publish(context.WithoutCancel(ctx), evt); err != nil {
			logging.Logger.Warn().Err(err).Str("op", evt.Op).Str("id", evt.ID).Msg("publish change event")
		}
	}
}

// sniff reads the first bytes of an upload to detect its type, and returns a
// reader that still yields the whole content.
func sniff(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return http.DetectContentType(head), br, nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeFilename reduces a client filename to a safe object-key segment.
func safeFilename(name, fallback string) string {
	name = unsafeFilename.ReplaceAllString(path.Base(strings.ReplaceAll(name, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return fallback
	}
	return name
}
