package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/forms"
	"github.com/electrophobia/epterm/internal/state"
	"github.com/electrophobia/epterm/internal/views"
)

// Login

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login == nil {
		return m, nil
	}
	switch {
	case msg.String() == "esc":
		m.pending = nil
		return m.navigate(Route{Name: RouteHome})
	case key.Matches(msg, m.keys.Submit),
		msg.String() == "enter" && m.login.focus == len(m.login.fields)-1:
		return m.submitLogin()
	}
	return m, m.login.handleKey(msg)
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	values := m.login.values()
	email, password := values.Get("email"), values["password"]
	if email == "" || password == "" {
		return m, m.notify("Email and password are required", state.ToastError)
	}
	m.login.busy = true
	ctx, store, client := m.ctx, m.session, m.client
	return m, func() tea.Msg {
		if _, err := store.Login(ctx, client, email, password); err != nil {
			return loginDoneMsg{err: err}
		}
		admin, _ := store.Admin()
		return loginDoneMsg{admin: admin}
	}
}

func (m Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	if m.login != nil {
		m.login.busy = false
	}
	if msg.err != nil {
		m.log.Info("login failed", "err", msg.err)
		return m, m.notify(errorText(msg.err), state.ToastError)
	}
	m.log.Info("logged in", "admin", msg.admin.Email)
	toast := m.notify("Login successful", state.ToastSuccess)
	if m.route.Name != RouteLogin {
		return m, toast
	}
	next, cmd := m.resume()
	return next, tea.Batch(toast, cmd)
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	if err := m.session.Logout(); err != nil {
		m.log.Warn("logout", "err", err)
	}
	m.pending = nil
	toast := m.notify("Logged out", state.ToastInfo)
	next, cmd := m.navigate(Route{Name: RouteLogin})
	return next, tea.Batch(toast, cmd)
}

// Dashboard

type adminRow struct {
	id     string
	title  string
	detail string
	status string
}

func publishedStatus(published bool) string {
	if published {
		return "published"
	}
	return "draft"
}

// adminRows lists every record of the selected tab, drafts included.
func (m Model) adminRows() []adminRow {
	var rows []adminRow
	switch dashboardTabs[m.adminTab] {
	case "blog":
		for _, b := range m.data.blogs.Snapshot().Items {
			rows = append(rows, adminRow{b.ID, b.Title, b.Category + " · /" + views.BlogPath(b), publishedStatus(b.IsPublished)})
		}
	case "project":
		for _, p := range m.data.projects.Snapshot().Items {
			rows = append(rows, adminRow{p.ID, p.Title, p.Category + " · " + p.Status, publishedStatus(p.IsPublished)})
		}
	case "experience":
		for _, e := range m.data.experiences.Snapshot().Items {
			rows = append(rows, adminRow{e.ID, e.Title, e.Type + " · " + e.Status, publishedStatus(e.IsPublished)})
		}
	case "product":
		for _, p := range m.data.products.Snapshot().Items {
			detail := views.FormatPrice(p.Price) + " · " + fmt.Sprintf("stock %d", p.Stock)
			rows = append(rows, adminRow{p.ID, p.Title, detail, publishedStatus(p.IsPublished)})
		}
	}
	return rows
}

func (m Model) dashboardStats() views.DashboardStats {
	stats := views.DashboardStats{
		Experiences: len(m.data.experiences.Snapshot().Items),
		Projects:    len(m.data.projects.Snapshot().Items),
		Blogs:       len(m.data.blogs.Snapshot().Items),
		Products:    len(m.data.products.Snapshot().Items),
	}
	stats.CountContacts(m.data.contacts.Snapshot().Items)
	return stats
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(msg) {
		return m, nil
	}
	kind := dashboardTabs[m.adminTab]
	rows := m.adminRows()
	switch {
	case key.Matches(msg, m.keys.Left):
		m.adminTab = (m.adminTab - 1 + len(dashboardTabs)) % len(dashboardTabs)
		m.cursor = 0
	case key.Matches(msg, m.keys.Right):
		m.adminTab = (m.adminTab + 1) % len(dashboardTabs)
		m.cursor = 0
	case key.Matches(msg, m.keys.New):
		return m.navigate(editorRoute(kind, ""))
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Open):
		if m.cursor < len(rows) {
			return m.navigate(editorRoute(kind, rows[m.cursor].id))
		}
	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(rows) {
			row := rows[m.cursor]
			m.confirm.Ask("Delete "+strings.ToLower(editors[kind].title),
				fmt.Sprintf("Delete %q? This cannot be undone.", row.title),
				deleteAction{kind: kind, id: row.id, title: row.title})
		}
	case key.Matches(msg, m.keys.Inbox):
		return m.navigate(Route{Name: RouteAdminInbox})
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	}
	return m, nil
}

// Contact inbox

var inboxFilters = append([]string{views.ContactFilterAll}, forms.ContactStatuses...)

func (m Model) inboxContacts() []api.Contact {
	return views.FilterContacts(m.data.contacts.Snapshot().Items, m.contactFilter)
}

func nextStatus(current string) string {
	for i, s := range forms.ContactStatuses {
		if s == current {
			return forms.ContactStatuses[(i+1)%len(forms.ContactStatuses)]
		}
	}
	return api.ContactRead
}

func (m Model) handleInboxKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(msg) {
		return m, nil
	}
	contacts := m.inboxContacts()
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		step := 1
		if key.Matches(msg, m.keys.Left) {
			step = len(inboxFilters) - 1
		}
		for i, f := range inboxFilters {
			if f == m.contactFilter {
				m.contactFilter = inboxFilters[(i+step)%len(inboxFilters)]
				break
			}
		}
		m.cursor = 0
		m.expanded = false
	case key.Matches(msg, m.keys.Open):
		m.expanded = !m.expanded
		if m.expanded && m.cursor < len(contacts) && contacts[m.cursor].Status == api.ContactNew {
			return m, m.setStatus(contacts[m.cursor].ID, api.ContactRead)
		}
	case key.Matches(msg, m.keys.Status):
		if m.cursor < len(contacts) {
			c := contacts[m.cursor]
			return m, m.setStatus(c.ID, nextStatus(c.Status))
		}
	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(contacts) {
			c := contacts[m.cursor]
			m.confirm.Ask("Delete message",
				fmt.Sprintf("Delete the message from %s? This cannot be undone.", c.Name),
				deleteAction{kind: "contact", id: c.ID, title: c.Name})
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	}
	return m, nil
}

func (m Model) setStatus(id, status string) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		_, err := client.Contacts.UpdateStatus(ctx, id, status)
		return statusChangedMsg{status: status, err: err}
	}
}

func (m Model) handleStatusChanged(msg statusChangedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if api.IsUnauthorized(msg.err) {
			return m, nil
		}
		return m, m.notify("Failed to update status: "+errorText(msg.err), state.ToastError)
	}
	return m, tea.Batch(m.notify("Status updated to "+msg.status, state.ToastSuccess), m.loadContacts())
}

// Delete confirmation

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		action, ok := m.confirm.Accept()
		if !ok {
			return m, nil
		}
		remove := editors[action.kind].remove
		ctx, client := m.ctx, m.client
		return m, func() tea.Msg {
			return deletedMsg{action: action, err: remove(ctx, client, action.id)}
		}
	case key.Matches(msg, m.keys.Cancel):
		m.confirm.Cancel()
	}
	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	title := editors[msg.action.kind].title
	if msg.err != nil {
		if api.IsUnauthorized(msg.err) {
			return m, nil
		}
		m.log.Warn("delete failed", "kind", msg.action.kind, "id", msg.action.id, "err", msg.err)
		return m, m.notify("Failed to delete "+strings.ToLower(title)+": "+errorText(msg.err), state.ToastError)
	}
	m.log.Info("deleted", "kind", msg.action.kind, "id", msg.action.id)
	return m, tea.Batch(m.notify(title+" deleted successfully", state.ToastSuccess), m.reload(msg.action.kind))
}

// Renderers

func (m Model) renderDashboard(s Styles, width, height int) string {
	stats := m.dashboardStats()
	cards := []string{
		statCard(s, "Experiences", stats.Experiences),
		statCard(s, "Projects", stats.Projects),
		statCard(s, "Blogs", stats.Blogs),
		statCard(s, "Products", stats.Products),
		statCard(s, fmt.Sprintf("Messages (%d new)", stats.NewContacts), stats.Contacts),
	}

	tabs := make([]string, len(dashboardTabs))
	for i, kind := range dashboardTabs {
		label := editors[kind].title + "s"
		if i == m.adminTab {
			tabs[i] = s.TabOn.Render(label)
		} else {
			tabs[i] = s.Tab.Render(label)
		}
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	rows := m.adminRows()
	if len(rows) == 0 {
		b.WriteString(s.MutedText.Render("No records yet. Press n to create one."))
	} else {
		lines := make([]string, len(rows))
		for i, r := range rows {
			lines[i] = r.title + "  " + s.MutedText.Render(r.detail) + "  " + s.StatusStyle(r.status).Render(r.status)
		}
		b.WriteString(m.renderRows(s, lines, width, height-8))
	}
	b.WriteString("\n\n")
	b.WriteString(s.FaintText.Render("h/l tab · n new · e edit · d delete · i inbox · X log out"))
	return b.String()
}

func statCard(s Styles, label string, n int) string {
	return s.Card.Render(s.Title.Render(fmt.Sprintf("%d", n)) + "\n" + s.MutedText.Render(label))
}

func (m Model) renderInbox(s Styles, width, height int) string {
	counts := views.ContactCounts(m.data.contacts.Snapshot().Items)
	tabs := make([]string, len(inboxFilters))
	for i, f := range inboxFilters {
		label := fmt.Sprintf("%s (%d)", f, counts[f])
		if f == m.contactFilter {
			tabs[i] = s.TabOn.Render(label)
		} else {
			tabs[i] = s.Tab.Render(label)
		}
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	snap := m.data.contacts.Snapshot()
	contacts := m.inboxContacts()
	switch {
	case snap.Loading && len(snap.Items) == 0:
		b.WriteString(m.loadingLine(s))
	case len(contacts) == 0:
		b.WriteString(s.MutedText.Render("No messages."))
	default:
		lines := make([]string, len(contacts))
		for i, c := range contacts {
			status := c.Status
			if status == "" {
				status = api.ContactNew
			}
			lines[i] = fmt.Sprintf("%s  %s  %s  %s", s.StatusStyle(status).Render(status), c.Name, s.MutedText.Render(c.Email), c.Subject)
		}
		b.WriteString(m.renderRows(s, lines, width, height-12))
		if m.expanded && m.cursor < len(contacts) {
			c := contacts[m.cursor]
			body := []string{s.Title.Render(c.Subject), s.MutedText.Render(c.Name + " <" + c.Email + ">"), "", c.Message}
			b.WriteString("\n")
			b.WriteString(s.Card.Width(max(width-4, 20)).Render(strings.Join(body, "\n")))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(s.FaintText.Render("h/l filter · enter read · s status · d delete · esc dashboard"))
	return b.String()
}

func (m Model) renderLogin(s Styles) string {
	if m.login == nil {
		return ""
	}
	var b strings.Builder
	if m.pending != nil {
		b.WriteString(s.WarningText.Render("Log in to continue to " + routes[m.pending.Name].title + "."))
		b.WriteString("\n\n")
	}
	b.WriteString(m.login.view(s))
	if m.login.busy {
		b.WriteString(m.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(s.FaintText.Render("enter log in · esc cancel"))
	return b.String()
}

func (m Model) renderEditor(s Styles) string {
	if m.form == nil {
		return ""
	}
	return m.form.view(s) + "\n" + s.FaintText.Render("tab next field · space toggle · ctrl+s save · esc cancel")
}
