package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/config"
	"github.com/electrophobia/epterm/internal/observability"
	"github.com/electrophobia/epterm/internal/prefs"
	"github.com/electrophobia/epterm/internal/realtime"
	"github.com/electrophobia/epterm/internal/session"
	"github.com/electrophobia/epterm/internal/ui"
)

// Options configure the epterm application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/epterm/prefs.toml
	LogLevel   slog.Level
	// LogWriter replaces the log file, e.g. stderr for the mock server.
	LogWriter io.Writer
}

// App owns every long-lived dependency. Build it with New and release it with Close.
type App struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Session   *session.Store
	Client    *api.Client
	Bridge    *realtime.Bridge

	log  *slog.Logger
	logs io.Closer

	mu             sync.Mutex
	onUnauthorized []func()
}

// New loads configuration and wires the session, API client and realtime bridge.
// Nothing touches the network until a caller makes a request or acquires the bridge.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &App{Config: cfg, PrefsPath: opts.PrefsPath}
	if opts.LogWriter != nil {
		observability.SetOutput(opts.LogWriter, opts.LogLevel)
	} else {
		closer, err := observability.Init(cfg.LogPath, opts.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("init logging: %w", err)
		}
		a.logs = closer
	}
	a.log = observability.WithFields("component", "app")

	if a.PrefsPath == "" {
		a.PrefsPath = prefs.DefaultPath()
	}
	a.Prefs = prefs.Load(a.PrefsPath)

	a.Session, err = session.Open(cfg.SessionPath)
	if err != nil {
		a.closeLogs()
		return nil, fmt.Errorf("open session: %w", err)
	}

	a.Client, err = api.NewClient(api.Options{
		BaseURL:        cfg.APIURL,
		Tokens:         a.Session,
		Timeout:        cfg.RequestTimeout,
		Retries:        cfg.Retries,
		OnUnauthorized: a.unauthorized,
	})
	if err != nil {
		a.closeLogs()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	a.Bridge, err = realtime.New(realtime.Options{
		URL:               cfg.RealtimeURL(),
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
	})
	if err != nil {
		a.closeLogs()
		return nil, fmt.Errorf("init realtime bridge: %w", err)
	}

	a.log.Info("epterm started",
		"api_url", a.Client.BaseURL(),
		"realtime_url", cfg.RealtimeURL(),
		"authenticated", a.Session.IsAuthenticated(),
	)
	return a, nil
}

// OnUnauthorized registers fn to run whenever the backend rejects the session.
func (a *App) OnUnauthorized(fn func()) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.onUnauthorized = append(a.onUnauthorized, fn)
	a.mu.Unlock()
}

func (a *App) unauthorized() {
	a.log.Warn("session rejected by backend, cleared")
	a.mu.Lock()
	hooks := append([]func(){}, a.onUnauthorized...)
	a.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Close tears down the realtime connection and flushes the log file.
func (a *App) Close() error {
	if a.Bridge != nil {
		a.Bridge.Close()
	}
	return a.closeLogs()
}

func (a *App) closeLogs() error {
	if a.logs == nil {
		return nil
	}
	err := a.logs.Close()
	a.logs = nil
	return err
}

// Run boots the TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	a, err := New(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return ui.Run(ctx, ui.Options{
		Client:    a.Client,
		Session:   a.Session,
		Bridge:    a.Bridge,
		Prefs:     a.Prefs,
		PrefsPath: a.PrefsPath,
		LogPath:   a.Config.LogPath,
		Subscribe: a.OnUnauthorized,
	})
}
