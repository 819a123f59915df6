// Package session holds the admin bearer token and profile between runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	toml "github.com/pelletier/go-toml/v2"
)

// Authenticator exchanges credentials for a token and an opaque profile.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (token string, profile json.RawMessage, err error)
}

// Admin is the subset of the login profile epterm displays.
type Admin struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Claims is what whoami shows from the token. It is decoded without verification.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Store keeps the session in memory and, when a path is set, in a TOML file.
// Token and profile are always written and cleared together.
type Store struct {
	mu      sync.RWMutex
	path    string
	token   string
	profile json.RawMessage
	onClear []func()
}

type fileFormat struct {
	Token   string `toml:"token"`
	Profile string `toml:"profile"`
}

// NewMemory returns a store that never touches disk.
func NewMemory() *Store {
	return &Store{}
}

// Open loads the session file at path. A missing file is an empty session.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var raw fileFormat
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.token = strings.TrimSpace(raw.Token)
	if s.token != "" && raw.Profile != "" {
		s.profile = json.RawMessage(raw.Profile)
	}
	return s, nil
}

// Login authenticates through auth and persists the result on success.
func (s *Store) Login(ctx context.Context, auth Authenticator, email, password string) (json.RawMessage, error) {
	token, profile, err := auth.Authenticate(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if err := s.Save(token, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Save stores a new token and profile.
func (s *Store) Save(token string, profile json.RawMessage) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("save session: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = append(json.RawMessage(nil), profile...)
	return s.persistLocked()
}

// Token returns the bearer token or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns a copy of the raw profile JSON.
func (s *Store) Profile() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.profile) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), s.profile...)
}

// Admin decodes the profile. ok is false when there is no usable profile.
func (s *Store) Admin() (Admin, bool) {
	raw := s.Profile()
	if len(raw) == 0 {
		return Admin{}, false
	}
	var a Admin
	if err := json.Unmarshal(raw, &a); err != nil {
		return Admin{}, false
	}
	if a.ID == "" {
		var alt struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &alt)
		a.ID = alt.ID
	}
	return a, true
}

// IsAuthenticated reports token presence only. Expiry and signature are the server's business.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Claims decodes the token payload without verifying it.
func (s *Store) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, fmt.Errorf("no session")
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}
	out := Claims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// OnClear registers fn to run after every Clear, e.g. to route to the login view.
func (s *Store) OnClear(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onClear = append(s.onClear, fn)
	s.mu.Unlock()
}

// Clear drops the session in memory and on disk and runs the OnClear hooks.
// It is safe to call repeatedly.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	var err error
	if s.path != "" {
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = fmt.Errorf("remove session: %w", rmErr)
		}
	}
	hooks := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return err
}

// Logout is Clear under the name the admin panel uses.
func (s *Store) Logout() error {
	return s.Clear()
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	bytes, err := toml.Marshal(fileFormat{Token: s.token, Profile: string(s.profile)})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := writeAtomic(s.path, bytes); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err == nil {
		return nil
	}
	defer os.Remove(tmp)
	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
	}
	return os.Rename(tmp, path)
}
