package overlay

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const urlScheme = "blob:"

// Object is the payload behind an object URL.
type Object struct {
	URL         string
	ContentType string
	Blob        []byte
}

// URLStore hands out object URLs for image bytes until they are revoked.
type URLStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	logger  *slog.Logger
}

func NewURLStore(logger *slog.Logger) *URLStore {
	return &URLStore{
		objects: make(map[string]Object),
		logger:  logger.With("component", "url-store"),
	}
}

// Create registers blob and returns its URL.
func (s *URLStore) Create(blob []byte, contentType string) string {
	url := urlScheme + uuid.NewString()

	s.mu.Lock()
	s.objects[url] = Object{URL: url, ContentType: contentType, Blob: blob}
	live := len(s.objects)
	s.mu.Unlock()

	s.logger.Debug("object url created", "url", url, "bytes", len(blob), "live", live)
	return url
}

// Revoke releases url. It reports whether url was live.
func (s *URLStore) Revoke(url string) bool {
	s.mu.Lock()
	_, ok := s.objects[url]
	delete(s.objects, url)
	live := len(s.objects)
	s.mu.Unlock()

	if ok {
		s.logger.Debug("object url revoked", "url", url, "live", live)
	}
	return ok
}

func (s *URLStore) Get(url string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[url]
	return obj, ok
}

// Live is the number of unrevoked URLs.
func (s *URLStore) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
