package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/logtail"
	"github.com/electrophobia/epterm/internal/realtime"
	"github.com/electrophobia/epterm/internal/session"
	"github.com/electrophobia/epterm/internal/state"
)

// Messages

type inboxMsg struct{ msg tea.Msg }

type liveMsg realtime.State

type changeMsg struct {
	kind  string
	event string
}

// loadedMsg carries a finished list fetch. finish applies it to the list
// unless a newer fetch started since.
type loadedMsg struct {
	ctx    context.Context
	what   string
	admin  bool
	err    error
	finish func() bool
}

type blogLoadedMsg struct {
	ctx    context.Context
	err    error
	finish func() bool
}

type logsLoadedMsg struct {
	ctx   context.Context
	lines []string
	err   error
}

type logTickMsg struct{ ctx context.Context }

type loginDoneMsg struct {
	admin session.Admin
	err   error
}

type sessionExpiredMsg struct{}

type savedMsg struct {
	kind    string
	created bool
	err     error
}

type deleteAction struct {
	kind  string
	id    string
	title string
}

type deletedMsg struct {
	action deleteAction
	err    error
}

type statusChangedMsg struct {
	status string
	err    error
}

type contactSentMsg struct{ err error }

type editorLoadedMsg struct {
	ctx    context.Context
	kind   string
	fields map[string]string
	err    error
}

type toastExpiredMsg time.Time

// Commands

const logTailLines = 500

func load[T any](ctx context.Context, list *state.List[T], what string, admin bool, fetch func(context.Context) ([]T, error)) tea.Cmd {
	ticket := list.Begin()
	return func() tea.Msg {
		items, err := fetch(ctx)
		return loadedMsg{
			ctx:    ctx,
			what:   what,
			admin:  admin,
			err:    err,
			finish: func() bool { return list.Finish(ticket, items, err) },
		}
	}
}

func (m Model) viewCtx() context.Context {
	if m.scope == nil {
		return m.ctx
	}
	return m.scope.ctx
}

func (m Model) adminView() bool {
	return isAdminRoute(m.route.Name)
}

func (m Model) loadExperiences() tea.Cmd {
	return load(m.viewCtx(), m.data.experiences, "experiences", m.adminView(), func(ctx context.Context) ([]api.Experience, error) {
		return m.client.Experiences.List(ctx, api.Filter{})
	})
}

func (m Model) loadProjects() tea.Cmd {
	return load(m.viewCtx(), m.data.projects, "projects", m.adminView(), func(ctx context.Context) ([]api.Project, error) {
		return m.client.Projects.List(ctx, api.Filter{})
	})
}

func (m Model) loadBlogs() tea.Cmd {
	return load(m.viewCtx(), m.data.blogs, "blogs", m.adminView(), func(ctx context.Context) ([]api.Blog, error) {
		return m.client.Blogs.List(ctx, api.Filter{})
	})
}

func (m Model) loadProducts() tea.Cmd {
	return load(m.viewCtx(), m.data.products, "products", m.adminView(), func(ctx context.Context) ([]api.Product, error) {
		return m.client.Products.List(ctx, api.Filter{})
	})
}

func (m Model) loadContacts() tea.Cmd {
	return load(m.viewCtx(), m.data.contacts, "messages", true, func(ctx context.Context) ([]api.Contact, error) {
		return m.client.Contacts.List(ctx, api.Filter{})
	})
}

func (m Model) loadBlog() tea.Cmd {
	ctx := m.viewCtx()
	slug := m.route.Param
	item := m.data.blog
	ticket := item.Begin()
	client := m.client
	return func() tea.Msg {
		blog, err := client.Blogs.GetBySlug(ctx, slug)
		return blogLoadedMsg{ctx: ctx, err: err, finish: func() bool { return item.Finish(ticket, blog, err) }}
	}
}

func (m Model) loadLogs() tea.Cmd {
	ctx, path := m.viewCtx(), m.logPath
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		return logsLoadedMsg{ctx: ctx, lines: lines, err: err}
	}
}

// logTick schedules the next tail while the logs view that started it is open.
func logTick(ctx context.Context) tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg { return logTickMsg{ctx: ctx} })
}

// handleLoaded applies a list result. Results for a page already left are
// dropped. Public pages only log failures; admin pages show them.
func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.ctx.Err() != nil {
		return m, nil
	}
	if !msg.finish() {
		return m, nil
	}
	m.clampCursor()
	if msg.err == nil {
		return m, nil
	}
	if api.IsUnauthorized(msg.err) {
		return m, nil
	}
	m.log.Warn("fetch failed", "what", msg.what, "err", msg.err)
	if msg.admin {
		return m, m.notify("Failed to load "+msg.what+": "+msg.err.Error(), state.ToastError)
	}
	return m, nil
}

func (m Model) handleBlogLoaded(msg blogLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.ctx.Err() != nil || !msg.finish() {
		return m, nil
	}
	snap := m.data.blog.Snapshot()
	switch {
	case snap.Err != nil:
		if api.StatusOf(snap.Err) != 404 {
			m.log.Warn("fetch blog failed", "slug", m.route.Param, "err", snap.Err)
		}
		m.detailBody = ""
	case snap.Item != nil:
		m.detailBody = snap.Item.Content
		m.detail.SetContent(m.renderMarkdown(m.detailBody))
		m.detail.GotoTop()
	}
	return m, nil
}

func (m Model) handleLogsLoaded(msg logsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.ctx.Err() != nil {
		return m, nil
	}
	if msg.err != nil {
		m.logs.SetContent("Could not read " + m.logPath + ": " + msg.err.Error())
		return m, logTick(msg.ctx)
	}
	atBottom := m.logs.AtBottom() || m.logs.TotalLineCount() == 0
	m.logs.SetContent(m.renderLogLines(msg.lines))
	if atBottom {
		m.logs.GotoBottom()
	}
	return m, logTick(msg.ctx)
}

// handleSessionExpired sends every 401 to the login view. Admin routes are
// remembered and resumed after logging in again.
func (m Model) handleSessionExpired() (tea.Model, tea.Cmd) {
	toast := m.notify("Session expired, please log in again", state.ToastWarning)
	if m.route.Name == RouteLogin {
		return m, toast
	}
	target := m.route
	if !isAdminRoute(target.Name) {
		m.pending = nil
		target = Route{Name: RouteLogin}
	}
	next, cmd := m.navigate(target)
	return next, tea.Batch(toast, cmd)
}

// errorText flattens joined validation errors onto one toast line.
func errorText(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
