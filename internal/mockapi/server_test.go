package mockapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/realtime"
	"github.com/electrophobia/epterm/internal/session"
)

const seedYAML = `
admin:
  name: Test Admin
  email: mentor@electrophobia.dev
  password: solder
products:
  - title: PCB Kit
    category: PCB
    price: 499
    stock: 0
    isPublished: true
  - title: ESP32 Module
    category: Module
    price: 8.5
    stock: 12
    isPublished: true
blogs:
  - title: Getting Started with Arduino
    excerpt: Blink an LED
    content: "# Hello"
    category: Tutorials
    isPublished: true
`

type harness struct {
	srv    *Server
	url    string
	client *api.Client
	store  *session.Store
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	opts.BcryptCost = bcrypt.MinCost
	if opts.JWTSecret == "" {
		opts.JWTSecret = "test-secret"
	}
	srv, err := New(opts)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store := session.NewMemory()
	client, err := api.NewClient(api.Options{BaseURL: ts.URL + "/api", Tokens: store})
	require.NoError(t, err)
	return &harness{srv: srv, url: ts.URL, client: client, store: store}
}

func ctxFor(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.store.Login(ctxFor(t), h.client, DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
}

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Equal(t, "mentor@electrophobia.dev", seed.Admin.Email)
	require.Len(t, seed.Products, 2)
	require.Equal(t, "PCB Kit", seed.Products[0]["title"])

	_, err = ParseSeed([]byte("products: ["))
	require.Error(t, err)
}

func TestSeedAdminAndRecords(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	h := newHarness(t, Options{Seed: &seed})
	ctx := ctxFor(t)

	_, err = h.store.Login(ctx, h.client, DefaultAdminEmail, DefaultAdminPassword)
	require.Error(t, err)

	profile, err := h.store.Login(ctx, h.client, "mentor@electrophobia.dev", "solder")
	require.NoError(t, err)
	require.Contains(t, string(profile), "Test Admin")

	products, err := h.client.Products.List(ctx, api.Filter{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "PCB Kit", products[0].Title)
	require.False(t, products[0].InStock())

	modules, err := h.client.Products.List(ctx, api.Filter{Category: "Module"})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, 8.5, modules[0].Price)

	found, err := h.client.Products.List(ctx, api.Filter{Search: "esp32"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	blog, err := h.client.Blogs.GetBySlug(ctx, "getting-started-with-arduino")
	require.NoError(t, err)
	require.Equal(t, "Blink an LED", blog.Excerpt)
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	h := newHarness(t, Options{})
	h.login(t)
	ctx := ctxFor(t)

	submitted := api.Blog{
		Title:       "Soldering 101",
		Excerpt:     "Hold the iron like a pen",
		Content:     "## Tools\n\n- iron\n- flux",
		Category:    "Tutorials",
		Author:      "ElectroPhobia Team",
		Tags:        []string{"Soldering", "Basics"},
		IsPublished: true,
	}
	created, err := h.client.Blogs.Create(ctx, submitted)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "soldering-101", created.Slug)

	got, err := h.client.Blogs.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, submitted.Title, got.Title)
	require.Equal(t, submitted.Excerpt, got.Excerpt)
	require.Equal(t, submitted.Content, got.Content)
	require.Equal(t, submitted.Category, got.Category)
	require.Equal(t, submitted.Author, got.Author)
	require.Equal(t, submitted.Tags, got.Tags)
	require.Equal(t, submitted.IsPublished, got.IsPublished)
	require.False(t, got.ParsedCreatedAt().IsZero())

	updated, err := h.client.Blogs.Update(ctx, created.ID, api.Blog{Title: "Soldering 102", Excerpt: "x", Content: "y", Slug: created.Slug})
	require.NoError(t, err)
	require.Equal(t, "Soldering 102", updated.Title)
	require.Equal(t, created.ID, updated.ID)

	ack, err := h.client.Blogs.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Blog deleted", ack.Message)

	_, err = h.client.Blogs.Get(ctx, created.ID)
	require.Equal(t, http.StatusNotFound, api.StatusOf(err))
}

func TestWritesRequireValidToken(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := ctxFor(t)
	require.NoError(t, h.store.Save("forged.token.value", nil))

	cleared := make(chan struct{}, 1)
	h.store.OnClear(func() { cleared <- struct{}{} })

	_, err := h.client.Projects.Create(ctx, api.Project{Title: "Line follower"})
	require.True(t, api.IsUnauthorized(err))
	require.False(t, h.store.IsAuthenticated())
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("session clear hook not called")
	}

	projects, err := h.client.Projects.List(ctx, api.Filter{})
	require.NoError(t, err)
	require.Empty(t, projects)
}

func TestValidationErrorsSurfaceMessage(t *testing.T) {
	h := newHarness(t, Options{})
	h.login(t)

	_, err := h.client.Experiences.Create(ctxFor(t), api.Experience{Type: "workshop"})
	require.Equal(t, http.StatusBadRequest, api.StatusOf(err))
	require.EqualError(t, err, "Title is required")
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, Options{LoginsPerMinute: 2})
	ctx := ctxFor(t)

	for i := 0; i < 2; i++ {
		_, _, err := h.client.Authenticate(ctx, DefaultAdminEmail, "wrong")
		require.EqualError(t, err, "Invalid credentials")
	}
	_, _, err := h.client.Authenticate(ctx, DefaultAdminEmail, DefaultAdminPassword)
	require.Equal(t, http.StatusTooManyRequests, api.StatusOf(err))
}

func TestContactsInbox(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := ctxFor(t)

	_, err := api.Fetch[api.Contact](ctx, h.client, api.Request{
		Method:   http.MethodPost,
		Endpoint: "/contacts",
		Body:     api.Contact{Name: "Ada", Email: "ada@example.com", Subject: "Workshop", Message: "When is the next one?"},
	}).Get()
	require.NoError(t, err)

	_, err = h.client.Contacts.List(ctx, api.Filter{})
	require.True(t, api.IsUnauthorized(err))

	h.login(t)
	contacts, err := h.client.Contacts.List(ctx, api.Filter{})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, api.ContactNew, contacts[0].Status)

	_, err = h.client.Contacts.UpdateStatus(ctx, contacts[0].ID, api.ContactReplied)
	require.NoError(t, err)
	got, err := h.client.Contacts.Get(ctx, contacts[0].ID)
	require.NoError(t, err)
	require.Equal(t, api.ContactReplied, got.Status)
}

func TestEmitsChangeEvents(t *testing.T) {
	h := newHarness(t, Options{})
	h.login(t)

	bridge, err := realtime.New(realtime.Options{URL: h.url, ReconnectAttempts: 1, ReconnectDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(bridge.Close)

	connected := make(chan struct{}, 1)
	bridge.OnStateChange(func(s realtime.State) {
		if s == realtime.Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	events := make(chan string, 8)
	stop := bridge.Watch("product", func(event string) { events <- event })
	defer stop()

	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not connect")
	}
	require.Equal(t, 1, h.srv.Clients())

	ctx := ctxFor(t)
	p, err := h.client.Products.Create(ctx, api.Product{Title: "Soldering Kit", Price: 25, Stock: 4})
	require.NoError(t, err)
	_, err = h.client.Products.Delete(ctx, p.ID)
	require.NoError(t, err)

	for _, want := range []string{"product:created", "product:deleted"} {
		select {
		case got := <-events:
			require.Equal(t, want, got)
		case <-time.After(3 * time.Second):
			t.Fatalf("missing %s", want)
		}
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	h := newHarness(t, Options{})
	resp, err := http.Get(h.url + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
