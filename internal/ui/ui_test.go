package ui

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/forms"
	"github.com/electrophobia/epterm/internal/prefs"
	"github.com/electrophobia/epterm/internal/session"
	"github.com/electrophobia/epterm/internal/state"
)

// fakeWatch counts live watchers per kind and keeps the latest handler.
type fakeWatch struct {
	active   map[string]int
	handlers map[string]func(string)
}

func newFakeWatch() *fakeWatch {
	return &fakeWatch{active: map[string]int{}, handlers: map[string]func(string){}}
}

func (f *fakeWatch) watch(kind string, fn func(string)) func() {
	f.active[kind]++
	f.handlers[kind] = fn
	stopped := false
	return func() {
		if !stopped {
			stopped = true
			f.active[kind]--
		}
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := New(context.Background(), Options{
		Session:   session.NewMemory(),
		Prefs:     prefs.Default(),
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		LogPath:   filepath.Join(t.TempDir(), "epterm.log"),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func logIn(t *testing.T, m Model) {
	t.Helper()
	profile := json.RawMessage(`{"_id":"a1","name":"Admin","email":"admin@electrophobia.dev","role":"admin"}`)
	if err := m.session.Save("token", profile); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNew_StartsOnPreferredPage(t *testing.T) {
	p := prefs.Default()
	p.StartPage = RouteShop
	m := New(context.Background(), Options{Prefs: p})
	if m.route.Name != RouteShop {
		t.Fatalf("route = %q, want %q", m.route.Name, RouteShop)
	}

	p.StartPage = RouteAdminForm
	m = New(context.Background(), Options{Prefs: p})
	if m.route.Name != RouteHome {
		t.Fatalf("route = %q, want home for a start page that needs a parameter", m.route.Name)
	}
}

func TestNavigate_AdminGuardRedirectsAndResumes(t *testing.T) {
	m := newTestModel(t)

	m, _ = m.navigate(Route{Name: RouteAdminInbox})
	if m.route.Name != RouteLogin {
		t.Fatalf("route = %q, want login", m.route.Name)
	}
	if m.pending == nil || m.pending.Name != RouteAdminInbox {
		t.Fatalf("pending = %+v, want the inbox", m.pending)
	}
	if m.login == nil {
		t.Fatalf("login form not built")
	}

	logIn(t, m)
	m, _ = update(t, m, loginDoneMsg{admin: session.Admin{Email: "admin@electrophobia.dev"}})
	if m.route.Name != RouteAdminInbox {
		t.Fatalf("route after login = %q, want %q", m.route.Name, RouteAdminInbox)
	}
	if m.pending != nil {
		t.Fatalf("pending not cleared")
	}
	if !m.toast.Visible || m.toast.Message != "Login successful" {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestLogin_FailureKeepsLoginPage(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteAdmin})

	m, _ = update(t, m, loginDoneMsg{err: &api.APIError{Status: 401, Message: "Invalid credentials"}})
	if m.route.Name != RouteLogin {
		t.Fatalf("route = %q, want login", m.route.Name)
	}
	if m.toast.Kind != state.ToastError || m.toast.Message != "Invalid credentials" {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestLogin_EscapeDropsPendingRoute(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteAdmin})
	m, _ = update(t, m, keyPress("esc"))
	if m.route.Name != RouteHome || m.pending != nil {
		t.Fatalf("route/pending = %q/%v, want home/nil", m.route.Name, m.pending)
	}
}

func TestNavigate_StartsAndStopsWatchers(t *testing.T) {
	m := newTestModel(t)
	fw := newFakeWatch()
	m.watch = fw.watch

	m, _ = m.navigate(Route{Name: RouteBlogs})
	if fw.active["blog"] != 1 {
		t.Fatalf("blog watchers = %d, want 1", fw.active["blog"])
	}

	logIn(t, m)
	m, _ = m.navigate(Route{Name: RouteAdmin})
	for _, kind := range []string{"experience", "project", "blog", "product", "contact"} {
		if fw.active[kind] != 1 {
			t.Fatalf("%s watchers on dashboard = %d, want 1", kind, fw.active[kind])
		}
	}

	m, _ = m.navigate(Route{Name: RouteAbout})
	for kind, n := range fw.active {
		if n != 0 {
			t.Fatalf("%s watchers after leaving = %d, want 0", kind, n)
		}
	}
	m.scope.close()
}

func TestWatcher_DeliversChangeThroughInbox(t *testing.T) {
	m := newTestModel(t)
	fw := newFakeWatch()
	m.watch = fw.watch
	m, _ = m.navigate(Route{Name: RouteBlogs})

	fw.handlers["blog"]("blog:deleted")
	select {
	case msg := <-m.inbox:
		change, ok := msg.(changeMsg)
		if !ok || change.kind != "blog" || change.event != "blog:deleted" {
			t.Fatalf("inbox message = %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("no message in inbox")
	}
}

func TestChangeMsg_RefetchesOnlyWatchedKinds(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteBlogs})

	if _, cmd := update(t, m, changeMsg{kind: "product", event: "product:created"}); cmd != nil {
		t.Fatalf("product change on blogs page returned a command")
	}
	if _, cmd := update(t, m, changeMsg{kind: "blog", event: "blog:deleted"}); cmd == nil {
		t.Fatalf("blog change on blogs page did not refetch")
	}
}

func TestHandleLoaded_DropsResultsForLeftPage(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteBlogs})
	ctx := m.viewCtx()

	m, _ = m.navigate(Route{Name: RouteAbout})
	applied := false
	m, _ = update(t, m, loadedMsg{ctx: ctx, what: "blogs", finish: func() bool {
		applied = true
		return true
	}})
	if applied {
		t.Fatalf("result for a page already left was applied")
	}
}

func TestHandleLoaded_AdminErrorsShowToast(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(Route{Name: RouteAdmin})

	m, _ = update(t, m, loadedMsg{
		ctx:    m.viewCtx(),
		what:   "projects",
		admin:  true,
		err:    &api.TransportError{Op: "execute request"},
		finish: func() bool { return true },
	})
	if !m.toast.Visible || m.toast.Kind != state.ToastError {
		t.Fatalf("toast = %+v, want an error toast", m.toast)
	}
	if !strings.Contains(m.toast.Message, "Failed to load projects") {
		t.Fatalf("toast message = %q", m.toast.Message)
	}
}

func TestToast_ExpiresOnlyAfterDeadline(t *testing.T) {
	m := newTestModel(t)
	if cmd := m.notify("Blog deleted successfully", state.ToastSuccess); cmd == nil {
		t.Fatalf("notify returned no expiry command")
	}

	m, _ = update(t, m, toastExpiredMsg(time.Now().Add(-time.Hour)))
	if !m.toast.Visible {
		t.Fatalf("toast hidden before its deadline")
	}
	m, _ = update(t, m, toastExpiredMsg(time.Now().Add(time.Hour)))
	if m.toast.Visible {
		t.Fatalf("toast still visible after its deadline")
	}
}

func TestKeys_NumberAndTabNavigate(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, keyPress("3"))
	if m.route.Name != RouteBlogs {
		t.Fatalf("route after 3 = %q, want blogs", m.route.Name)
	}
	m, _ = update(t, m, keyPress("tab"))
	if m.route.Name != RouteProjects {
		t.Fatalf("route after tab = %q, want projects", m.route.Name)
	}
	m, _ = update(t, m, keyPress("esc"))
	if m.route.Name != RouteHome {
		t.Fatalf("route after esc = %q, want home", m.route.Name)
	}
}

func TestStepRoute_Wraps(t *testing.T) {
	if got := stepRoute(RouteContact, 1); got != RouteHome {
		t.Fatalf("stepRoute(contact, 1) = %q", got)
	}
	if got := stepRoute(RouteHome, -1); got != RouteContact {
		t.Fatalf("stepRoute(home, -1) = %q", got)
	}
	if got := stepRoute(RouteLogs, 1); got != RouteAbout {
		t.Fatalf("stepRoute(logs, 1) = %q, want about", got)
	}
}

func TestSessionExpired_OnAdminRouteReturnsToLogin(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(Route{Name: RouteAdmin})

	if err := m.session.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	m, _ = update(t, m, sessionExpiredMsg{})
	if m.route.Name != RouteLogin {
		t.Fatalf("route = %q, want login", m.route.Name)
	}
	if m.pending == nil || m.pending.Name != RouteAdmin {
		t.Fatalf("pending = %+v, want dashboard", m.pending)
	}
	if m.toast.Kind != state.ToastWarning {
		t.Fatalf("toast kind = %q, want warning", m.toast.Kind)
	}
}

func TestSessionExpired_OnPublicRouteGoesToLogin(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteShop})
	m, _ = update(t, m, sessionExpiredMsg{})
	if m.route.Name != RouteLogin {
		t.Fatalf("route = %q, want login", m.route.Name)
	}
	if m.pending != nil {
		t.Fatalf("pending = %+v, want none for a public page", m.pending)
	}
	if m.toast.Kind != state.ToastWarning {
		t.Fatalf("toast kind = %q, want warning", m.toast.Kind)
	}
}

func TestBlogs_CategoryAndSearch(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteBlogs})
	ticket := m.data.blogs.Begin()
	m.data.blogs.Finish(ticket, []api.Blog{
		{ID: "b1", Title: "Getting Started with Arduino", Category: "Tutorials", IsPublished: true},
		{ID: "b2", Title: "PCB Design Basics", Category: "Project Guides", IsPublished: true},
		{ID: "b3", Title: "Draft", Category: "Tutorials", IsPublished: false},
	}, nil)

	if n := len(m.visibleBlogs()); n != 2 {
		t.Fatalf("visible blogs = %d, want 2 published", n)
	}
	m, _ = update(t, m, keyPress("c"))
	if m.category != "Tutorials" || len(m.visibleBlogs()) != 1 {
		t.Fatalf("category %q shows %d blogs", m.category, len(m.visibleBlogs()))
	}
	m, _ = update(t, m, keyPress("c"))
	m, _ = update(t, m, keyPress("c"))
	if m.category != "" {
		t.Fatalf("category = %q, want back to All", m.category)
	}

	m, _ = update(t, m, keyPress("/"))
	if !m.searching {
		t.Fatalf("search not focused")
	}
	for _, r := range "pcb" {
		m, _ = update(t, m, keyPress(string(r)))
	}
	m, _ = update(t, m, keyPress("enter"))
	blogs := m.visibleBlogs()
	if len(blogs) != 1 || blogs[0].ID != "b2" {
		t.Fatalf("search results = %+v", blogs)
	}

	m, _ = update(t, m, keyPress("enter"))
	if m.route.Name != RouteBlog || m.route.Param != "b2" {
		t.Fatalf("route = %+v, want blog b2", m.route)
	}
}

func TestForm_FillValuesAndKeys(t *testing.T) {
	f := newBlogForm()
	f.fill(forms.Fields{
		"title":       "Soldering 101",
		"category":    "Tips & Tricks",
		"content":     "Heat the joint, not the solder.",
		"isPublished": "false",
		"unknown":     "ignored",
	})
	values := f.values()
	if values["title"] != "Soldering 101" || values["category"] != "Tips & Tricks" {
		t.Fatalf("values = %v", values)
	}
	if values["content"] != "Heat the joint, not the solder." || values["isPublished"] != "false" {
		t.Fatalf("values = %v", values)
	}

	for i, fld := range f.fields {
		if fld.key == "isPublished" {
			f.focus = i
		}
	}
	f.handleKey(keyPress(" "))
	if f.values()["isPublished"] != "true" {
		t.Fatalf("toggle did not flip")
	}

	for i, fld := range f.fields {
		if fld.key == "category" {
			f.focus = i
		}
	}
	f.handleKey(keyPress("right"))
	if got := f.values()["category"]; got != "Industry News" {
		t.Fatalf("category after right = %q, want Industry News", got)
	}

	f.focus = 0
	f.handleKey(keyPress("tab"))
	if f.focus != 1 {
		t.Fatalf("focus after tab = %d, want 1", f.focus)
	}
}

func TestContactForm_ValidatesBeforeSending(t *testing.T) {
	m := newTestModel(t)
	m, _ = m.navigate(Route{Name: RouteContact})
	if m.form == nil {
		t.Fatalf("contact form not built")
	}

	m, cmd := update(t, m, keyPress("ctrl+s"))
	if m.form.busy {
		t.Fatalf("form busy after failed validation")
	}
	if m.toast.Kind != state.ToastError || !strings.Contains(m.toast.Message, "name is required") {
		t.Fatalf("toast = %+v", m.toast)
	}
	if cmd == nil {
		t.Fatalf("no toast expiry command")
	}

	m, _ = update(t, m, contactSentMsg{})
	if !strings.HasPrefix(m.toast.Message, "Message sent successfully") {
		t.Fatalf("toast = %q", m.toast.Message)
	}
}

func TestEditor_PrefillsFromLoadedList(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	ticket := m.data.blogs.Begin()
	m.data.blogs.Finish(ticket, []api.Blog{{ID: "b1", Title: "Hello", Excerpt: "e", Content: "c", Category: "Tutorials"}}, nil)

	m, _ = m.navigate(editorRoute("blog", "b1"))
	if m.route.Name != RouteAdminForm || m.form == nil {
		t.Fatalf("route = %+v form = %v", m.route, m.form)
	}
	if m.form.title != "Edit Blog" || m.form.busy {
		t.Fatalf("form title/busy = %q/%v", m.form.title, m.form.busy)
	}
	if got := m.form.field("title").value(); got != "Hello" {
		t.Fatalf("title = %q, want Hello", got)
	}

	m, cmd := m.navigate(editorRoute("blog", "missing"))
	if !m.form.busy || cmd == nil {
		t.Fatalf("unknown id should fetch the record")
	}
}

func TestEditor_UnknownKindFallsBackToDashboard(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(editorRoute("widget", ""))
	if m.route.Name != RouteAdmin {
		t.Fatalf("route = %q, want dashboard", m.route.Name)
	}
}

func TestEditor_SavedReturnsToDashboardTab(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(editorRoute("product", ""))

	m, _ = update(t, m, savedMsg{kind: "product", created: true})
	if m.route.Name != RouteAdmin {
		t.Fatalf("route = %q, want dashboard", m.route.Name)
	}
	if dashboardTabs[m.adminTab] != "product" {
		t.Fatalf("tab = %q, want product", dashboardTabs[m.adminTab])
	}
	if m.toast.Message != "Product created successfully" {
		t.Fatalf("toast = %q", m.toast.Message)
	}
}

func TestEditor_SaveErrorShowsServerMessage(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(editorRoute("blog", ""))

	m, _ = update(t, m, savedMsg{kind: "blog", created: true, err: &api.APIError{Status: 400, Message: "Title is required"}})
	if m.route.Name != RouteAdminForm {
		t.Fatalf("route = %q, want the form kept open", m.route.Name)
	}
	if m.toast.Message != "Failed to save blog: Title is required" {
		t.Fatalf("toast = %q", m.toast.Message)
	}
}

func TestEditor_ValidationErrorKeepsForm(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(editorRoute("experience", ""))

	m, _ = update(t, m, keyPress("ctrl+s"))
	if m.route.Name != RouteAdminForm || m.form.busy {
		t.Fatalf("route/busy = %q/%v", m.route.Name, m.form.busy)
	}
	if !strings.Contains(m.toast.Message, "title is required") {
		t.Fatalf("toast = %q", m.toast.Message)
	}
}

func TestDashboard_DeleteAsksForConfirmation(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(Route{Name: RouteAdmin})
	ticket := m.data.blogs.Begin()
	m.data.blogs.Finish(ticket, []api.Blog{{ID: "b1", Title: "Hello"}}, nil)

	m, _ = update(t, m, keyPress("d"))
	if !m.confirm.Visible {
		t.Fatalf("confirm dialog not shown")
	}
	m, _ = update(t, m, keyPress("n"))
	if m.confirm.Visible {
		t.Fatalf("confirm dialog still shown after cancel")
	}

	m, _ = update(t, m, keyPress("d"))
	m, cmd := update(t, m, keyPress("y"))
	if m.confirm.Visible || cmd == nil {
		t.Fatalf("confirm did not start the delete")
	}

	m, cmd = update(t, m, deletedMsg{action: deleteAction{kind: "blog", id: "b1", title: "Hello"}})
	if m.toast.Message != "Blog deleted successfully" || cmd == nil {
		t.Fatalf("toast/cmd = %q/%v", m.toast.Message, cmd)
	}
}

func TestInbox_FilterCycles(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(Route{Name: RouteAdminInbox})
	ticket := m.data.contacts.Begin()
	m.data.contacts.Finish(ticket, []api.Contact{
		{ID: "c1", Name: "Ada", Status: api.ContactNew},
		{ID: "c2", Name: "Linus", Status: api.ContactReplied},
	}, nil)

	if n := len(m.inboxContacts()); n != 2 {
		t.Fatalf("all = %d, want 2", n)
	}
	m, _ = update(t, m, keyPress("l"))
	if m.contactFilter != api.ContactNew || len(m.inboxContacts()) != 1 {
		t.Fatalf("filter %q shows %d", m.contactFilter, len(m.inboxContacts()))
	}
	if _, cmd := update(t, m, keyPress("s")); cmd == nil {
		t.Fatalf("status key did not start an update")
	}
}

func TestLogout_GoesToLogin(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	m, _ = m.navigate(Route{Name: RouteAdmin})
	m, _ = update(t, m, keyPress("X"))
	if m.route.Name != RouteLogin || m.session.IsAuthenticated() {
		t.Fatalf("route/auth = %q/%v, want login/false", m.route.Name, m.session.IsAuthenticated())
	}
	if m.pending != nil {
		t.Fatalf("pending = %+v, want none after logout", m.pending)
	}
}

func TestRenderLogLines(t *testing.T) {
	m := newTestModel(t)
	out := m.renderLogLines([]string{
		`{"time":"2026-10-19T15:04:05.123Z","level":"WARN","msg":"fetch failed","what":"blogs"}`,
		"",
	})
	if !strings.Contains(out, "15:04:05") || !strings.Contains(out, "fetch failed what=blogs") {
		t.Fatalf("rendered = %q", out)
	}
	if got := m.renderLogLines(nil); !strings.Contains(got, "No log entries") {
		t.Fatalf("empty rendered = %q", got)
	}
}

func TestView_RendersEveryRoute(t *testing.T) {
	m := newTestModel(t)
	logIn(t, m)
	for _, r := range []Route{
		{Name: RouteHome}, {Name: RouteAbout}, {Name: RouteBlogs}, {Name: RouteBlog, Param: "missing"},
		{Name: RouteProjects}, {Name: RouteExperiences}, {Name: RouteShop}, {Name: RouteContact},
		{Name: RouteLogs}, {Name: RouteAdmin}, editorRoute("blog", ""), {Name: RouteAdminInbox},
	} {
		next, _ := m.navigate(r)
		view := next.View()
		if !strings.Contains(view, "ElectroPhobia") {
			t.Fatalf("view for %s lacks the header:\n%s", r.Name, view)
		}
		m = next
	}

	m.showHelp = true
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help overlay not rendered")
	}
}
