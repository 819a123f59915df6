package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/electrophobia/epterm/internal/observability"
)

// Route names.
const (
	RouteHome        = "home"
	RouteAbout       = "about"
	RouteBlogs       = "blogs"
	RouteBlog        = "blog"
	RouteProjects    = "projects"
	RouteExperiences = "experiences"
	RouteShop        = "shop"
	RouteContact     = "contact"
	RouteLogs        = "logs"
	RouteLogin       = "login"
	RouteAdmin       = "admin"
	RouteAdminForm   = "admin/form"
	RouteAdminInbox  = "admin/contacts"
)

// Route is a page plus its parameter: a blog slug, or "kind:id" for admin forms.
type Route struct {
	Name  string
	Param string
}

type routeSpec struct {
	title        string
	requiresAuth bool
	// kinds are the realtime change events the page refetches on.
	kinds []string
}

var routes = map[string]routeSpec{
	RouteHome:        {title: "Home", kinds: []string{"project"}},
	RouteAbout:       {title: "About"},
	RouteBlogs:       {title: "Blogs", kinds: []string{"blog"}},
	RouteBlog:        {title: "Blog", kinds: []string{"blog"}},
	RouteProjects:    {title: "Projects", kinds: []string{"project"}},
	RouteExperiences: {title: "Experiences", kinds: []string{"experience"}},
	RouteShop:        {title: "Shop", kinds: []string{"product"}},
	RouteContact:     {title: "Contact"},
	RouteLogs:        {title: "Logs"},
	RouteLogin:       {title: "Admin Login"},
	RouteAdmin: {
		title:        "Dashboard",
		requiresAuth: true,
		kinds:        []string{"experience", "project", "blog", "product", "contact"},
	},
	RouteAdminForm:  {title: "Editor", requiresAuth: true},
	RouteAdminInbox: {title: "Messages", requiresAuth: true, kinds: []string{"contact"}},
}

// navOrder is the tab order of the public pages.
var navOrder = []string{RouteHome, RouteAbout, RouteBlogs, RouteProjects, RouteExperiences, RouteShop, RouteContact}

// viewScope lives exactly as long as one visit to a route.
type viewScope struct {
	ctx    context.Context
	cancel context.CancelFunc
	stops  []func()
}

func (s *viewScope) close() {
	if s == nil {
		return
	}
	s.cancel()
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil
}

// navigate is the only way to change routes. Admin routes without a session
// divert to the login page and the target is resumed after login.
func (m Model) navigate(to Route) (Model, tea.Cmd) {
	spec, ok := routes[to.Name]
	if !ok {
		to, spec = Route{Name: RouteHome}, routes[RouteHome]
	}
	if spec.requiresAuth && !m.session.IsAuthenticated() {
		target := to
		m.pending = &target
		to, spec = Route{Name: RouteLogin}, routes[RouteLogin]
		m.log.Info("admin route requires login", "target", target.Name)
	}

	m.scope.close()
	ctx, cancel := context.WithCancel(observability.WithView(m.ctx, to.Name))
	scope := &viewScope{ctx: ctx, cancel: cancel}
	if m.watch != nil {
		for _, kind := range spec.kinds {
			scope.stops = append(scope.stops, m.watch(kind, func(event string) {
				m.send(changeMsg{kind: kind, event: event})
			}))
		}
	}

	m.route = to
	m.scope = scope
	m.resetPage()
	return m.enter()
}

// resume continues to the route the guard interrupted, or the dashboard.
func (m Model) resume() (Model, tea.Cmd) {
	target := Route{Name: RouteAdmin}
	if m.pending != nil {
		target = *m.pending
		m.pending = nil
	}
	return m.navigate(target)
}

func (m *Model) resetPage() {
	m.cursor = 0
	m.category = ""
	m.searching = false
	m.search.SetValue("")
	m.search.Blur()
	m.expanded = false
	m.confirm.Cancel()
	if m.route.Name != RouteAdminForm {
		m.form = nil
	}
	if m.route.Name != RouteLogin {
		m.login = nil
	}
}

// enter builds the page's widgets and starts its fetches.
func (m Model) enter() (Model, tea.Cmd) {
	switch m.route.Name {
	case RouteHome:
		return m, m.loadProjects()
	case RouteBlogs:
		return m, m.loadBlogs()
	case RouteBlog:
		return m, m.loadBlog()
	case RouteProjects:
		return m, m.loadProjects()
	case RouteExperiences:
		return m, m.loadExperiences()
	case RouteShop:
		return m, m.loadProducts()
	case RouteContact:
		m.form = newContactForm()
		m.form.setWidth(m.width)
		return m, m.form.focusCmd()
	case RouteLogs:
		return m, m.loadLogs()
	case RouteLogin:
		m.login = newLoginForm()
		m.login.setWidth(m.width)
		return m, m.login.focusCmd()
	case RouteAdmin:
		return m, tea.Batch(m.loadExperiences(), m.loadProjects(), m.loadBlogs(), m.loadProducts(), m.loadContacts())
	case RouteAdminForm:
		return m.enterEditor()
	case RouteAdminInbox:
		return m, m.loadContacts()
	}
	return m, nil
}

// reload refetches whatever the current page shows of kind.
func (m Model) reload(kind string) tea.Cmd {
	switch kind {
	case "experience":
		return m.loadExperiences()
	case "project":
		return m.loadProjects()
	case "blog":
		if m.route.Name == RouteBlog {
			return m.loadBlog()
		}
		return m.loadBlogs()
	case "product":
		return m.loadProducts()
	case "contact":
		return m.loadContacts()
	}
	return nil
}

func (m Model) watches(kind string) bool {
	for _, k := range routes[m.route.Name].kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func stepRoute(current string, delta int) string {
	idx := 0
	for i, name := range navOrder {
		if name == current {
			idx = i
		}
	}
	n := len(navOrder)
	return navOrder[((idx+delta)%n+n)%n]
}
