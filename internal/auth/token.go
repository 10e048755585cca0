// Package auth stores the backend bearer token across terminal restarts.
package auth

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// FileStore keeps the token in a plain file. Reads are cached; disk trouble
// is logged, never surfaced, so a broken token file behaves like a logout.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	cached string
	loaded bool
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger.Named("auth")}
}

func (s *FileStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loaded = true
		raw, err := os.ReadFile(s.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("cannot read token file", zap.String("path", s.path), zap.Error(err))
			}
		} else {
			s.cached = strings.TrimSpace(string(raw))
		}
	}
	return s.cached, s.cached != ""
}

func (s *FileStore) Save(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = token
	s.loaded = true
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		s.logger.Warn("cannot write token file", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = ""
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("cannot remove token file", zap.String("path", s.path), zap.Error(err))
	}
}

// Expired inspects the token's exp claim without verifying the signature;
// verification is the backend's job, this only avoids sending a token that
// is already dead. Tokens that don't parse or carry no expiry count as live
// and get rejected server-side if they are not.
func Expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
