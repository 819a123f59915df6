package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/session"
	"github.com/electrophobia/epterm/internal/state"
	"github.com/electrophobia/epterm/internal/views"
)

// ErrNotLoggedIn is returned by Whoami without a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Login authenticates and persists the session.
func (a *App) Login(ctx context.Context, email, password string) (session.Admin, error) {
	if _, err := a.Session.Login(ctx, a.Client, email, password); err != nil {
		a.log.Info("login failed", "email", email, "err", err)
		return session.Admin{}, err
	}
	admin, _ := a.Session.Admin()
	a.log.Info("logged in", "email", admin.Email)
	return admin, nil
}

// Logout drops the session. It succeeds when already logged out.
func (a *App) Logout() error {
	return a.Session.Logout()
}

// Identity is what whoami reports.
type Identity struct {
	Admin     session.Admin
	Subject   string
	ExpiresAt time.Time
}

// Whoami describes the stored session without contacting the backend.
func (a *App) Whoami() (Identity, error) {
	if !a.Session.IsAuthenticated() {
		return Identity{}, ErrNotLoggedIn
	}
	id := Identity{}
	id.Admin, _ = a.Session.Admin()
	if claims, err := a.Session.Claims(); err == nil {
		id.Subject = claims.Subject
		id.ExpiresAt = claims.ExpiresAt
	}
	return id, nil
}

// Row is one line of a listing.
type Row struct {
	ID       string
	Title    string
	Category string
	Detail   string
}

type listing struct {
	kind string
	list func(context.Context, api.Filter) ([]Row, error)
}

func rowsOf[T any](list func(context.Context, api.Filter) ([]T, error), row func(T) Row) func(context.Context, api.Filter) ([]Row, error) {
	return func(ctx context.Context, f api.Filter) ([]Row, error) {
		items, err := list(ctx, f)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row(item))
		}
		return rows, nil
	}
}

func (a *App) listings() map[string]listing {
	return map[string]listing{
		"blogs":       {kind: a.Client.Blogs.Kind(), list: rowsOf(a.Client.Blogs.List, blogRow)},
		"projects":    {kind: a.Client.Projects.Kind(), list: rowsOf(a.Client.Projects.List, projectRow)},
		"experiences": {kind: a.Client.Experiences.Kind(), list: rowsOf(a.Client.Experiences.List, experienceRow)},
		"products":    {kind: a.Client.Products.Kind(), list: rowsOf(a.Client.Products.List, productRow)},
		"contacts":    {kind: a.Client.Contacts.Kind(), list: rowsOf(a.Client.Contacts.List, contactRow)},
	}
}

// Kinds are the resource names List accepts.
func Kinds() []string {
	return []string{"blogs", "projects", "experiences", "products", "contacts"}
}

func (a *App) listing(kind string) (listing, error) {
	l, ok := a.listings()[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return listing{}, fmt.Errorf("unknown resource %q (want one of %s)", kind, strings.Join(Kinds(), ", "))
	}
	return l, nil
}

// List fetches one resource collection as printable rows.
func (a *App) List(ctx context.Context, kind string, f api.Filter) ([]Row, error) {
	l, err := a.listing(kind)
	if err != nil {
		return nil, err
	}
	return l.list(ctx, f)
}

// WatchList calls fn with the current rows and again after every change event,
// until ctx ends.
func (a *App) WatchList(ctx context.Context, kind string, f api.Filter, fn func([]Row, error)) error {
	l, err := a.listing(kind)
	if err != nil {
		return err
	}
	page := state.NewPage(ctx, func(ctx context.Context) ([]Row, error) { return l.list(ctx, f) })
	defer page.Close()
	stop := Follow(ctx, a.Bridge, l.kind, page, 0, func(s state.ListSnapshot[Row]) { fn(s.Items, s.Err) })
	defer stop()
	<-ctx.Done()
	return nil
}

func published(ok bool) string {
	if ok {
		return "published"
	}
	return "draft"
}

func blogRow(b api.Blog) Row {
	detail := published(b.IsPublished)
	if t := b.ParsedCreatedAt(); !t.IsZero() {
		detail += " " + t.Format("2006-01-02")
	}
	return Row{ID: b.ID, Title: b.Title, Category: b.Category, Detail: detail}
}

func projectRow(p api.Project) Row {
	parts := []string{published(p.IsPublished)}
	if p.Status != "" {
		parts = append(parts, p.Status)
	}
	if p.Featured {
		parts = append(parts, "featured")
	}
	return Row{ID: p.ID, Title: p.Title, Category: p.Category, Detail: strings.Join(parts, ", ")}
}

func experienceRow(e api.Experience) Row {
	parts := slices.DeleteFunc([]string{published(e.IsPublished), e.Status, e.Duration}, func(s string) bool { return s == "" })
	return Row{ID: e.ID, Title: e.Title, Category: e.Type, Detail: strings.Join(parts, ", ")}
}

func productRow(p api.Product) Row {
	stock := views.StockLine(p)
	if stock == "" {
		stock = views.OutOfStock
	}
	return Row{ID: p.ID, Title: p.Title, Category: p.Category, Detail: views.FormatPrice(p.Price) + ", " + stock}
}

func contactRow(c api.Contact) Row {
	status := c.Status
	if status == "" {
		status = api.ContactNew
	}
	title := c.Subject
	if title == "" {
		title = "(no subject)"
	}
	return Row{ID: c.ID, Title: title, Category: status, Detail: c.Name + " <" + c.Email + ">"}
}
