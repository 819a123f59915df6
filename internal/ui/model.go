package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/observability"
	"github.com/electrophobia/epterm/internal/prefs"
	"github.com/electrophobia/epterm/internal/realtime"
	"github.com/electrophobia/epterm/internal/session"
	"github.com/electrophobia/epterm/internal/state"
	"github.com/electrophobia/epterm/internal/views"
)

// Options configure the UI.
type Options struct {
	Client  *api.Client
	Session *session.Store
	// Bridge delivers change events. Nil, or realtime off in prefs, disables live refresh.
	Bridge    *realtime.Bridge
	Prefs     prefs.Prefs
	PrefsPath string
	LogPath   string
	// Subscribe registers a callback for a session the backend rejected.
	Subscribe func(func())
}

// data holds one fetch state per collection, shared by every page showing it.
type data struct {
	experiences *state.List[api.Experience]
	projects    *state.List[api.Project]
	blogs       *state.List[api.Blog]
	products    *state.List[api.Product]
	contacts    *state.List[api.Contact]
	blog        *state.Item[api.Blog]
}

func newData() *data {
	return &data{
		experiences: &state.List[api.Experience]{},
		projects:    &state.List[api.Project]{},
		blogs:       &state.List[api.Blog]{},
		products:    &state.List[api.Product]{},
		contacts:    &state.List[api.Contact]{},
		blog:        &state.Item[api.Blog]{},
	}
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	client    *api.Client
	session   *session.Store
	watch     func(kind string, fn func(event string)) (stop func())
	inbox     chan tea.Msg
	prefs     prefs.Prefs
	prefsPath string
	logPath   string
	log       *slog.Logger

	theme    Theme
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	width    int
	height   int
	ready    bool
	showHelp bool
	live     realtime.State

	route   Route
	pending *Route
	scope   *viewScope
	data    *data
	startup tea.Cmd

	// Page state, reset on every navigation.
	cursor        int
	category      string
	search        textinput.Model
	searching     bool
	expanded      bool
	adminTab      int
	contactFilter string
	detail        viewport.Model
	detailBody    string
	logs          viewport.Model
	form          *form
	login         *form

	toast   state.Toast
	confirm state.Confirm[deleteAction]
}

// New builds the model and opens the start page from prefs.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Session == nil {
		opts.Session = session.NewMemory()
	}
	search := textinput.New()
	search.Placeholder = "Search blogs..."
	search.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		ctx:           ctx,
		client:        opts.Client,
		session:       opts.Session,
		inbox:         make(chan tea.Msg, 64),
		prefs:         opts.Prefs,
		prefsPath:     opts.PrefsPath,
		logPath:       opts.LogPath,
		log:           observability.WithFields("component", "ui"),
		theme:         GetTheme(opts.Prefs.Theme),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		spinner:       sp,
		data:          newData(),
		search:        search,
		contactFilter: views.ContactFilterAll,
		detail:        viewport.New(80, 20),
		logs:          viewport.New(80, 20),
	}
	if opts.Bridge != nil && opts.Prefs.RealtimeEnabled() {
		m.watch = opts.Bridge.Watch
		opts.Bridge.OnStateChange(func(s realtime.State) { m.send(liveMsg(s)) })
	}
	if opts.Subscribe != nil {
		opts.Subscribe(func() { m.send(sessionExpiredMsg{}) })
	}

	start := opts.Prefs.StartPage
	if _, ok := routes[start]; !ok || start == RouteBlog || start == RouteAdminForm {
		start = RouteHome
	}
	m, m.startup = m.navigate(Route{Name: start})
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startup, m.waitInbox(), m.spinner.Tick)
}

// send hands a message from another goroutine to the program. It never blocks;
// a full inbox drops the message.
func (m Model) send(msg tea.Msg) {
	select {
	case m.inbox <- msg:
	default:
		m.log.Warn("ui inbox full, dropping message")
	}
}

func (m Model) waitInbox() tea.Cmd {
	inbox := m.inbox
	return func() tea.Msg {
		return inboxMsg{msg: <-inbox}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewports()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case inboxMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, next.(Model).waitInbox())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case liveMsg:
		m.live = realtime.State(msg)
		return m, nil

	case changeMsg:
		if !m.watches(msg.kind) {
			return m, nil
		}
		m.log.Debug("refetch on change", "event", msg.event, "route", m.route.Name)
		return m, m.reload(msg.kind)

	case loadedMsg:
		return m.handleLoaded(msg)

	case blogLoadedMsg:
		return m.handleBlogLoaded(msg)

	case logsLoadedMsg:
		return m.handleLogsLoaded(msg)

	case logTickMsg:
		if msg.ctx.Err() != nil {
			return m, nil
		}
		return m, m.loadLogs()

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case sessionExpiredMsg:
		return m.handleSessionExpired()

	case savedMsg:
		return m.handleSaved(msg)

	case deletedMsg:
		return m.handleDeleted(msg)

	case statusChangedMsg:
		return m.handleStatusChanged(msg)

	case contactSentMsg:
		return m.handleContactSent(msg)

	case editorLoadedMsg:
		return m.handleEditorLoaded(msg)

	case toastExpiredMsg:
		if m.toast.Expired(time.Time(msg)) {
			m.toast.Hide()
		}
		return m, nil
	}

	return m, m.updateFocused(msg)
}

// updateFocused forwards other messages (cursor blink and the like) to the focused input.
func (m Model) updateFocused(msg tea.Msg) tea.Cmd {
	switch {
	case m.searching:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return cmd
	case m.route.Name == RouteLogin && m.login != nil:
		return m.login.update(msg)
	case m.form != nil:
		return m.form.update(msg)
	}
	return nil
}

// notify shows a toast and schedules its expiry.
func (m *Model) notify(message string, kind state.ToastKind) tea.Cmd {
	m.toast.Show(message, kind)
	deadline := m.toast.Deadline
	return tea.Tick(time.Until(deadline), func(t time.Time) tea.Msg {
		return toastExpiredMsg(t)
	})
}

func (m *Model) resizeViewports() {
	bodyHeight := max(m.height-5, 3)
	m.detail.Width = max(m.width-4, 20)
	m.detail.Height = bodyHeight
	m.logs.Width = max(m.width-2, 20)
	m.logs.Height = bodyHeight
	if m.detailBody != "" {
		m.detail.SetContent(m.renderMarkdown(m.detailBody))
	}
	if m.form != nil {
		m.form.setWidth(m.width)
	}
	if m.login != nil {
		m.login.setWidth(m.width)
	}
}

// handleKey processes keyboard input. Dialogs and text inputs see keys first.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.scope.close()
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.confirm.Visible {
		return m.handleConfirmKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.route.Name == RouteLogin {
		return m.handleLoginKey(msg)
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.scope.close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.log.Warn("save prefs", "err", err)
		}
		if m.detailBody != "" {
			m.detail.SetContent(m.renderMarkdown(m.detailBody))
		}
		return m, nil
	case key.Matches(msg, m.keys.NextPage):
		return m.navigate(Route{Name: stepRoute(m.route.Name, 1)})
	case key.Matches(msg, m.keys.PrevPage):
		return m.navigate(Route{Name: stepRoute(m.route.Name, -1)})
	case key.Matches(msg, m.keys.Logs):
		return m.navigate(Route{Name: RouteLogs})
	case key.Matches(msg, m.keys.Admin):
		if !isAdminRoute(m.route.Name) {
			return m.navigate(Route{Name: RouteAdmin})
		}
	case key.Matches(msg, m.keys.Back):
		return m.back()
	}

	if r := msg.String(); len(r) == 1 && r[0] >= '1' && r[0] <= '7' {
		return m.navigate(Route{Name: navOrder[r[0]-'1']})
	}

	switch m.route.Name {
	case RouteBlogs:
		return m.handleBlogsKey(msg)
	case RouteBlog:
		return m.handleBlogKey(msg)
	case RouteHome, RouteProjects, RouteExperiences, RouteShop:
		return m.handleListKey(msg)
	case RouteLogs:
		return m.handleLogsKey(msg)
	case RouteAdmin:
		return m.handleDashboardKey(msg)
	case RouteAdminInbox:
		return m.handleInboxKey(msg)
	}
	return m, nil
}

func (m Model) back() (tea.Model, tea.Cmd) {
	switch m.route.Name {
	case RouteBlog:
		return m.navigate(Route{Name: RouteBlogs})
	case RouteAdminForm, RouteAdminInbox:
		return m.navigate(Route{Name: RouteAdmin})
	case RouteHome:
		return m, nil
	}
	return m.navigate(Route{Name: RouteHome})
}

func isAdminRoute(name string) bool {
	return routes[name].requiresAuth
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.scope.close()
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
