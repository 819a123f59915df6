// Package mockapi is an in-memory stand-in for the ElectroPhobia backend: the
// REST contract under /api plus change events on /socket.io/. It exists for
// local development and tests.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/forms"
	"github.com/electrophobia/epterm/internal/observability"
)

// Options configure the mock backend. Zero values pick development defaults.
type Options struct {
	AdminName      string
	AdminEmail     string
	AdminPassword  string
	JWTSecret      string
	Seed           *Seed
	AllowedOrigins []string
	// LoginsPerMinute bounds login attempts per client IP.
	LoginsPerMinute int
	PingInterval    time.Duration
	PingTimeout     time.Duration
	BcryptCost      int
}

const (
	DefaultAdminEmail    = "admin@electrophobia.dev"
	DefaultAdminPassword = "electrophobia"
)

// Server serves the mock API.
type Server struct {
	log     *slog.Logger
	store   *store
	hub     *hub
	admin   admin
	secret  []byte
	limiter *loginLimiter
	origins []string
}

type resource struct {
	path         string
	kind         string
	publicRead   bool
	publicCreate bool
}

var resources = []resource{
	{path: "experiences", kind: "experience", publicRead: true},
	{path: "projects", kind: "project", publicRead: true},
	{path: "blogs", kind: "blog", publicRead: true},
	{path: "products", kind: "product", publicRead: true},
	{path: "contacts", kind: "contact", publicCreate: true},
}

// New builds a server, hashing the admin password and loading the seed.
func New(opts Options) (*Server, error) {
	log := observability.WithFields("component", "mockapi")

	a := admin{ID: uuid.NewString(), Name: "ElectroPhobia Admin", Email: DefaultAdminEmail}
	password := DefaultAdminPassword
	var hash string
	if opts.Seed != nil {
		a.Name = firstNonEmpty(opts.Seed.Admin.Name, a.Name)
		a.Email = firstNonEmpty(opts.Seed.Admin.Email, a.Email)
		password = firstNonEmpty(opts.Seed.Admin.Password, password)
		hash = opts.Seed.Admin.PasswordHash
	}
	a.Name = firstNonEmpty(opts.AdminName, a.Name)
	a.Email = firstNonEmpty(opts.AdminEmail, a.Email)
	if opts.AdminPassword != "" {
		password, hash = opts.AdminPassword, ""
	}
	if hash != "" {
		a.PasswordHash = []byte(hash)
	} else {
		cost := opts.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.PasswordHash = h
	}

	secret := opts.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("no jwt secret configured, tokens will not survive a restart")
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 20 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	s := &Server{
		log:     log,
		store:   newStore(),
		hub:     newHub(log, pingInterval, pingTimeout),
		admin:   a,
		secret:  []byte(secret),
		limiter: newLoginLimiter(opts.LoginsPerMinute),
		origins: origins,
	}
	if opts.Seed != nil {
		for path, records := range opts.Seed.records() {
			for _, rec := range records {
				s.store.create(path, s.prepare(path, rec))
			}
		}
	}
	return s, nil
}

// Handler returns the full routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	r.Handle("/socket.io/", s.hub)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
		})
		r.With(s.limiter.middleware).Post("/auth/login", s.login)
		for _, res := range resources {
			s.mount(r, res)
		}
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock backend listening", "addr", addr, "admin", s.admin.Email)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Clients returns the number of connected realtime sockets.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

func (s *Server) mount(r chi.Router, res resource) {
	r.Route("/"+res.path, func(r chi.Router) {
		read := r.With()
		if !res.publicRead {
			read = r.With(s.requireAdmin)
		}
		read.Get("/", s.list(res))
		read.Get("/{id}", s.get(res))
		if res.kind == "blog" {
			r.Get("/slug/{slug}", s.getBySlug)
		}

		create := r.With()
		if !res.publicCreate {
			create = r.With(s.requireAdmin)
		}
		create.Post("/", s.create(res))

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Put("/{id}", s.update(res))
			r.Delete("/{id}", s.remove(res))
			if res.kind == "contact" {
				r.Patch("/{id}/status", s.updateStatus(res))
			}
		})
	})
}

func (s *Server) list(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		records := s.store.list(res.path, listFilter{Category: q.Get("category"), Search: q.Get("search")})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(records), "data": records})
	}
}

func (s *Server) get(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.store.get(res.path, chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, title(res.kind)+" not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
	}
}

func (s *Server) getBySlug(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.findBy("blogs", "slug", chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "Blog not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
}

func (s *Server) create(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := decodeRecord(w, r)
		if !ok {
			return
		}
		if msg := validate(res.kind, rec); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		if res.kind == "contact" {
			rec["ipAddress"] = clientIP(r)
		}
		saved := s.store.create(res.path, s.prepare(res.path, rec))
		s.hub.emit(res.kind+":created", saved)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": saved, "message": title(res.kind) + " created"})
	}
}

func (s *Server) update(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := decodeRecord(w, r)
		if !ok {
			return
		}
		if v, present := rec["title"]; present && strings.TrimSpace(fmt.Sprint(v)) == "" {
			writeError(w, http.StatusBadRequest, "Title is required")
			return
		}
		saved, found := s.store.update(res.path, chi.URLParam(r, "id"), rec)
		if !found {
			writeError(w, http.StatusNotFound, title(res.kind)+" not found")
			return
		}
		s.hub.emit(res.kind+":updated", saved)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": saved, "message": title(res.kind) + " updated"})
	}
}

func (s *Server) remove(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !s.store.delete(res.path, id) {
			writeError(w, http.StatusNotFound, title(res.kind)+" not found")
			return
		}
		s.hub.emit(res.kind+":deleted", map[string]string{"_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": title(res.kind) + " deleted"})
	}
}

func (s *Server) updateStatus(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		switch body.Status {
		case api.ContactNew, api.ContactRead, api.ContactReplied, api.ContactArchived:
		default:
			writeError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		saved, found := s.store.update(res.path, chi.URLParam(r, "id"), Record{"status": body.Status})
		if !found {
			writeError(w, http.StatusNotFound, "Contact not found")
			return
		}
		s.hub.emit(res.kind+":updated", saved)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": saved, "message": "Status updated"})
	}
}

// prepare fills server-side defaults before a record is stored.
func (s *Server) prepare(path string, rec Record) Record {
	switch path {
	case "blogs":
		if rec.str("slug") == "" {
			rec["slug"] = forms.Slugify(rec.str("title"))
		}
		if _, ok := rec["views"]; !ok {
			rec["views"] = 0
		}
	case "contacts":
		if rec.str("status") == "" {
			rec["status"] = api.ContactNew
		}
	}
	return rec
}

func validate(kind string, rec Record) string {
	if kind == "contact" {
		for _, field := range []string{"name", "email", "message"} {
			if strings.TrimSpace(rec.str(field)) == "" {
				return "Please provide " + field
			}
		}
		return ""
	}
	if strings.TrimSpace(rec.str("title")) == "" {
		return "Title is required"
	}
	return ""
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (Record, bool) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return rec, true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func title(kind string) string {
	if kind == "" {
		return ""
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
