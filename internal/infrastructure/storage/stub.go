package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	catalogapp "github.com/grocery/backend/internal/application/catalog"
)

// StubObjectStorage hands out fake URLs when object storage is disabled.
// Nothing is ever uploaded.
type StubObjectStorage struct {
	BaseURL string
}

// NewStubObjectStorage creates a new StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{
		BaseURL: "https://storage.example.com",
	}
}

// Ensure StubObjectStorage implements PictureStorage
var _ catalogapp.PictureStorage = (*StubObjectStorage)(nil)

// GenerateUploadURL generates a stub upload URL
func (s *StubObjectStorage) GenerateUploadURL(
	_ context.Context,
	storageKey, _ string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.base() + "/upload/" + storageKey + "?expires=" + expiresAt.UTC().Format(time.RFC3339)

	return url, expiresAt, nil
}

// PublicURL returns the stub public link for a key
func (s *StubObjectStorage) PublicURL(storageKey string) string {
	return s.base() + "/" + storageKey
}

// KeyFromURL is the inverse of PublicURL
func (s *StubObjectStorage) KeyFromURL(link string) (string, bool) {
	key, ok := strings.CutPrefix(link, s.base()+"/")
	return key, ok && key != ""
}

// DeleteObject is a no-op
func (s *StubObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	return nil
}

// ObjectExists reports every key as uploaded so the confirm step works without a bucket
func (s *StubObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	return true, nil
}

func (s *StubObjectStorage) base() string {
	return strings.TrimRight(s.BaseURL, "/")
}
