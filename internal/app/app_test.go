package app

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/config"
	"github.com/electrophobia/epterm/internal/mockapi"
	"github.com/electrophobia/epterm/internal/realtime"
	"github.com/electrophobia/epterm/internal/state"
)

const seedYAML = `
blogs:
  - title: Getting Started with Arduino
    category: Tutorials
    isPublished: true
  - title: PCB Design Basics
    category: Hardware
    isPublished: true
products:
  - title: PCB Kit
    category: PCB
    price: 499
    stock: 0
    isPublished: true
`

func startBackend(t *testing.T) string {
	t.Helper()
	seed, err := mockapi.ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	srv, err := mockapi.New(mockapi.Options{Seed: &seed, JWTSecret: "test", BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("mockapi.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newTestApp(t *testing.T, backend string) *App {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.APIURLEnv, "")
	t.Chdir(t.TempDir())

	cfgPath := filepath.Join(home, "config.toml")
	cfg := fmt.Sprintf(`
api_url = %q
request_timeout = "5s"
reconnect_attempts = 2
reconnect_delay = "20ms"
session_path = %q
log_path = %q
`, backend+"/api", filepath.Join(home, "session.toml"), filepath.Join(home, "epterm.log"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a, err := New(Options{ConfigPath: cfgPath, PrefsPath: filepath.Join(home, "prefs.toml")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCalculateBackoff(t *testing.T) {
	base := 2 * time.Second
	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"seven failures", 7, 256 * time.Second},
		{"eight failures capped", 8, maxBackoff},
		{"many failures capped", 40, maxBackoff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateBackoff(tt.failures, base); got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, base, got, tt.want)
			}
		})
	}
}

func TestNew_WiresConfiguration(t *testing.T) {
	backend := startBackend(t)
	a := newTestApp(t, backend)

	if got := a.Client.BaseURL(); got != backend+"/api" {
		t.Fatalf("BaseURL = %q, want %q", got, backend+"/api")
	}
	if a.Prefs.Theme != "Circuit" {
		t.Fatalf("Theme = %q, want default", a.Prefs.Theme)
	}
	if a.Bridge.State() != realtime.Disconnected {
		t.Fatalf("bridge connected before anyone acquired it")
	}
	if _, err := os.Stat(a.Config.LogPath); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestNew_InvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := New(Options{ConfigPath: path}); err == nil {
		t.Fatalf("New returned nil error for invalid config")
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	a := newTestApp(t, startBackend(t))
	ctx := testContext(t)

	if _, err := a.Whoami(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("Whoami before login = %v, want ErrNotLoggedIn", err)
	}
	if _, err := a.Login(ctx, mockapi.DefaultAdminEmail, "nope"); err == nil {
		t.Fatalf("Login with wrong password succeeded")
	}

	admin, err := a.Login(ctx, mockapi.DefaultAdminEmail, mockapi.DefaultAdminPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if admin.Email != mockapi.DefaultAdminEmail {
		t.Fatalf("admin email = %q", admin.Email)
	}
	if _, err := os.Stat(a.Config.SessionPath); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}

	id, err := a.Whoami()
	if err != nil {
		t.Fatalf("Whoami: %v", err)
	}
	if id.Subject != admin.ID || id.ExpiresAt.Before(time.Now()) {
		t.Fatalf("identity = %+v, want subject %q and future expiry", id, admin.ID)
	}

	if err := a.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := a.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if _, err := os.Stat(a.Config.SessionPath); !os.IsNotExist(err) {
		t.Fatalf("session file still present: %v", err)
	}
}

func TestUnauthorizedHookRuns(t *testing.T) {
	a := newTestApp(t, startBackend(t))
	if err := a.Session.Save("stale.token.here", nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	fired := make(chan struct{}, 1)
	a.OnUnauthorized(func() { fired <- struct{}{} })

	_, err := a.Client.Blogs.Create(testContext(t), api.Blog{Title: "x"})
	if !api.IsUnauthorized(err) {
		t.Fatalf("Create error = %v, want unauthorized", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("unauthorized hook not called")
	}
	if a.Session.IsAuthenticated() {
		t.Fatalf("session survived a 401")
	}
}

func TestList(t *testing.T) {
	a := newTestApp(t, startBackend(t))
	ctx := testContext(t)

	rows, err := a.List(ctx, "products", api.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].Detail != "$499.00, Out of Stock" {
		t.Fatalf("rows = %+v", rows)
	}

	rows, err = a.List(ctx, " Blogs ", api.Filter{Category: "Hardware"})
	if err != nil {
		t.Fatalf("List blogs: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "PCB Design Basics" {
		t.Fatalf("rows = %+v", rows)
	}

	if _, err := a.List(ctx, "widgets", api.Filter{}); err == nil {
		t.Fatalf("List accepted an unknown resource")
	}
	if _, err := a.List(ctx, "contacts", api.Filter{}); !api.IsUnauthorized(err) {
		t.Fatalf("contacts without login = %v, want unauthorized", err)
	}
}

func TestFollow_RefetchesWhenBlogDeleted(t *testing.T) {
	a := newTestApp(t, startBackend(t))
	ctx := testContext(t)

	connected := make(chan struct{}, 1)
	a.Bridge.OnStateChange(func(s realtime.State) {
		if s == realtime.Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})

	page := state.NewPage(ctx, func(ctx context.Context) ([]api.Blog, error) {
		return a.Client.Blogs.List(ctx, api.Filter{})
	})
	defer page.Close()
	updates := make(chan []api.Blog, 16)
	stop := Follow(ctx, a.Bridge, "blog", page, 0, func(s state.ListSnapshot[api.Blog]) { updates <- s.Items })
	defer stop()

	var blogs []api.Blog
	select {
	case blogs = <-updates:
	case <-ctx.Done():
		t.Fatalf("no initial refresh")
	}
	if len(blogs) != 2 {
		t.Fatalf("initial blogs = %d, want 2", len(blogs))
	}
	select {
	case <-connected:
	case <-ctx.Done():
		t.Fatalf("bridge did not connect")
	}

	if _, err := a.Login(ctx, mockapi.DefaultAdminEmail, mockapi.DefaultAdminPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := a.Client.Blogs.Delete(ctx, blogs[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for {
		select {
		case blogs = <-updates:
			if len(blogs) == 1 {
				if blogs[0].Title != "PCB Design Basics" {
					t.Fatalf("remaining blog = %q", blogs[0].Title)
				}
				return
			}
		case <-ctx.Done():
			t.Fatalf("page never dropped the deleted blog")
		}
	}
}

func TestFollow_StopsWhenPageCloses(t *testing.T) {
	calls := make(chan struct{}, 16)
	page := state.NewPage(context.Background(), func(context.Context) ([]string, error) {
		select {
		case calls <- struct{}{}:
		default:
		}
		return []string{"a"}, nil
	})
	stop := Follow(context.Background(), nil, "blog", page, time.Millisecond, nil)

	<-calls
	page.Close()
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stop blocked after the page closed")
	}
}
