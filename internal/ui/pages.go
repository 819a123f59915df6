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

// Derived page contents

func (m Model) visibleBlogs() []api.Blog {
	published := views.Published(m.data.blogs.Snapshot().Items, views.BlogPublished)
	return views.SearchBlogs(published, m.category, m.search.Value())
}

func (m Model) visibleProjects() []api.Project {
	published := views.Published(m.data.projects.Snapshot().Items, views.ProjectPublished)
	return views.InCategory(published, m.category, views.ProjectCategory)
}

func (m Model) featuredProjects() []api.Project {
	return views.FeaturedProjects(m.data.projects.Snapshot().Items)
}

// visibleExperiences flattens the groups in display order so one cursor walks all three.
func (m Model) visibleExperiences() []api.Experience {
	g := views.GroupExperiences(m.data.experiences.Snapshot().Items)
	out := make([]api.Experience, 0, len(g.Mentorship)+len(g.Workshops)+len(g.Achievements))
	out = append(out, g.Mentorship...)
	out = append(out, g.Workshops...)
	return append(out, g.Achievements...)
}

func (m Model) shop() views.Shop {
	return views.NewShop(m.data.products.Snapshot().Items)
}

func (m Model) visibleProducts() []api.Product {
	return m.shop().Filter(m.category)
}

func (m Model) categories() []string {
	switch m.route.Name {
	case RouteBlogs:
		return views.Categories(views.Published(m.data.blogs.Snapshot().Items, views.BlogPublished), views.BlogCategory)
	case RouteProjects:
		return views.Categories(views.Published(m.data.projects.Snapshot().Items, views.ProjectPublished), views.ProjectCategory)
	case RouteShop:
		return m.shop().Categories
	}
	return nil
}

func (m *Model) cycleCategory() {
	cats := m.categories()
	if len(cats) == 0 {
		return
	}
	idx := 0
	for i, c := range cats {
		if c == m.category {
			idx = i
		}
	}
	m.category = cats[(idx+1)%len(cats)]
	if m.category == views.AllCategories {
		m.category = ""
	}
	m.cursor = 0
	m.expanded = false
}

func (m Model) rowCount() int {
	switch m.route.Name {
	case RouteHome:
		return len(m.featuredProjects())
	case RouteBlogs:
		return len(m.visibleBlogs())
	case RouteProjects:
		return len(m.visibleProjects())
	case RouteExperiences:
		return len(m.visibleExperiences())
	case RouteShop:
		return len(m.visibleProducts())
	case RouteAdmin:
		return len(m.adminRows())
	case RouteAdminInbox:
		return len(m.inboxContacts())
	}
	return 0
}

func (m *Model) clampCursor() {
	n := m.rowCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// moveCursor applies the list navigation keys and reports whether msg was one.
func (m *Model) moveCursor(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = m.rowCount() - 1
	default:
		return false
	}
	m.expanded = false
	m.clampCursor()
	return true
}

// refresh refetches everything the current page shows.
func (m Model) refresh() tea.Cmd {
	kinds := routes[m.route.Name].kinds
	cmds := make([]tea.Cmd, 0, len(kinds))
	for _, kind := range kinds {
		cmds = append(cmds, m.reload(kind))
	}
	return tea.Batch(cmds...)
}

// Key handlers

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(msg) {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Category):
		m.cycleCategory()
	case key.Matches(msg, m.keys.Open):
		if m.route.Name == RouteHome {
			return m.navigate(Route{Name: RouteProjects})
		}
		m.expanded = !m.expanded
	}
	return m, nil
}

func (m Model) handleBlogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(msg) {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Category):
		m.cycleCategory()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Open):
		blogs := m.visibleBlogs()
		if m.cursor < len(blogs) {
			return m.navigate(Route{Name: RouteBlog, Param: views.BlogPath(blogs[m.cursor])})
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		fallthrough
	case "enter":
		m.searching = false
		m.search.Blur()
		m.cursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.cursor = 0
	return m, cmd
}

func (m Model) handleBlogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Refresh) {
		return m, m.loadBlog()
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Top):
		m.logs.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logs.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logs, cmd = m.logs.Update(msg)
	return m, cmd
}

func (m Model) handleContactSent(msg contactSentMsg) (tea.Model, tea.Cmd) {
	if m.route.Name == RouteContact && m.form != nil {
		m.form.busy = false
	}
	if msg.err != nil {
		m.log.Warn("send contact message failed", "err", msg.err)
		return m, m.notify("Failed to send message: "+errorText(msg.err), state.ToastError)
	}
	if m.route.Name == RouteContact && m.form != nil {
		m.form.reset()
		return m, tea.Batch(
			m.notify("Message sent successfully! We'll get back to you soon.", state.ToastSuccess),
			m.form.move(-m.form.focus),
		)
	}
	return m, m.notify("Message sent successfully! We'll get back to you soon.", state.ToastSuccess)
}

func (m Model) submitContact() (tea.Model, tea.Cmd) {
	contact, err := forms.ContactPayload(m.form.values())
	if err != nil {
		return m, m.notify(errorText(err), state.ToastError)
	}
	m.form.busy = true
	ctx, client := m.ctx, m.client
	return m, func() tea.Msg {
		_, err := client.Contacts.Create(ctx, contact)
		return contactSentMsg{err: err}
	}
}

// Renderers

const heroText = `Electronics without the fear.

ElectroPhobia runs hands-on workshops, mentors new makers and builds open
hardware projects, from a first blinking LED to connected sensor networks.`

const aboutText = `ElectroPhobia started as a weekend workshop for people who were sure they
would break something. It grew into a community that teaches electronics by
building real things together.

What we do
  • Workshops on Arduino, ESP32, PCB design and soldering
  • Mentorship for students taking on their first embedded projects
  • Open hardware projects, documented so anyone can rebuild them
  • A small shop of kits and boards we use ourselves

Reach us through the Contact page or press 7.`

func (m Model) renderHome(s Styles, width, height int) string {
	var b strings.Builder
	b.WriteString(s.Title.Render("ElectroPhobia"))
	b.WriteString("\n")
	b.WriteString(s.Text.Render(heroText))
	b.WriteString("\n\n")
	b.WriteString(s.AccentText.Render("Featured Projects"))
	b.WriteString("\n")

	snap := m.data.projects.Snapshot()
	featured := m.featuredProjects()
	switch {
	case snap.Loading && len(snap.Items) == 0:
		b.WriteString(m.loadingLine(s))
	case len(featured) == 0:
		b.WriteString(s.MutedText.Render("No featured projects yet."))
	default:
		rows := make([]string, len(featured))
		for i, p := range featured {
			rows[i] = p.Title + s.MutedText.Render("  "+p.Category) + "  " + s.StatusStyle(p.Status).Render(p.Status)
		}
		b.WriteString(m.renderRows(s, rows, width, height-8))
	}
	return b.String()
}

func (m Model) renderAbout(s Styles) string {
	return s.Title.Render("About ElectroPhobia") + "\n\n" + s.Text.Render(aboutText)
}

func (m Model) renderBlogs(s Styles, width, height int) string {
	var b strings.Builder
	b.WriteString(m.renderCategories(s))
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	snap := m.data.blogs.Snapshot()
	blogs := m.visibleBlogs()
	switch {
	case snap.Loading && len(snap.Items) == 0:
		b.WriteString(m.loadingLine(s))
	case len(blogs) == 0:
		total := len(views.Published(snap.Items, views.BlogPublished))
		b.WriteString(s.MutedText.Render(views.BlogsEmptyMessage(total, m.search.Value())))
	default:
		rows := make([]string, len(blogs))
		for i, blog := range blogs {
			date := ""
			if t := blog.ParsedCreatedAt(); !t.IsZero() {
				date = t.Format("Jan 2, 2006")
			}
			rows[i] = fmt.Sprintf("%s  %s  %s", blog.Title, s.MutedText.Render(blog.Category), s.FaintText.Render(date))
		}
		b.WriteString(m.renderRows(s, rows, width, height-4))
		if m.cursor < len(blogs) && blogs[m.cursor].Excerpt != "" {
			b.WriteString("\n\n")
			b.WriteString(s.MutedText.Width(width).Render(blogs[m.cursor].Excerpt))
		}
	}
	return b.String()
}

func (m Model) renderBlog(s Styles) string {
	snap := m.data.blog.Snapshot()
	switch {
	case snap.Loading && snap.Item == nil:
		return m.loadingLine(s)
	case snap.Item == nil || snap.Err != nil:
		return s.Title.Render("Blog not found") + "\n\n" +
			s.MutedText.Render("The article may have been removed. Press esc to go back to the blog list.")
	}
	blog := snap.Item
	meta := []string{blog.Author, blog.Category}
	if t := blog.ParsedCreatedAt(); !t.IsZero() {
		meta = append(meta, t.Format("January 2, 2006"))
	}
	if len(blog.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(blog.Tags, " #"))
	}
	return s.Title.Render(blog.Title) + "\n" +
		s.MutedText.Render(strings.Join(meta, " · ")) + "\n" +
		m.detail.View()
}

func (m Model) renderProjects(s Styles, width, height int) string {
	var b strings.Builder
	b.WriteString(m.renderCategories(s))
	b.WriteString("\n\n")

	snap := m.data.projects.Snapshot()
	projects := m.visibleProjects()
	switch {
	case snap.Loading && len(snap.Items) == 0:
		b.WriteString(m.loadingLine(s))
	case len(projects) == 0:
		b.WriteString(s.MutedText.Render("No projects found in this category."))
	default:
		rows := make([]string, len(projects))
		for i, p := range projects {
			rows[i] = p.Title + "  " + s.StatusStyle(p.Status).Render(p.Status)
			if p.Featured {
				rows[i] += " " + s.StatusStyle("featured").Render("Featured")
			}
		}
		b.WriteString(m.renderRows(s, rows, width, height-10))
		if m.expanded && m.cursor < len(projects) {
			b.WriteString("\n")
			b.WriteString(renderProjectCard(s, projects[m.cursor], width))
		}
	}
	return b.String()
}

func renderProjectCard(s Styles, p api.Project, width int) string {
	lines := []string{s.Title.Render(p.Title), p.Description}
	if len(p.Technologies) > 0 {
		lines = append(lines, s.AccentText.Render(strings.Join(p.Technologies, " · ")))
	}
	if p.GithubURL != "" {
		lines = append(lines, s.MutedText.Render("Code: "+p.GithubURL))
	}
	if p.LiveURL != "" {
		lines = append(lines, s.MutedText.Render("Live: "+p.LiveURL))
	}
	return s.Card.Width(max(width-4, 20)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderExperiences(s Styles, width, height int) string {
	snap := m.data.experiences.Snapshot()
	if snap.Loading && len(snap.Items) == 0 {
		return m.loadingLine(s)
	}
	g := views.GroupExperiences(snap.Items)
	sections := []struct {
		title string
		items []api.Experience
	}{
		{"Mentorship Programs", g.Mentorship},
		{"Workshops", g.Workshops},
		{"Achievements", g.Achievements},
	}

	var b strings.Builder
	idx := 0
	for _, sec := range sections {
		b.WriteString(s.AccentText.Render(sec.title))
		b.WriteString("\n")
		if len(sec.items) == 0 {
			b.WriteString(s.FaintText.Render("  Nothing here yet."))
			b.WriteString("\n\n")
			continue
		}
		for _, e := range sec.items {
			line := e.Title + "  " + s.StatusStyle(e.Status).Render(e.Status)
			if d := e.ParsedDate(); !d.IsZero() {
				line += s.MutedText.Render("  " + d.Format("Jan 2006"))
			}
			if e.Location != "" {
				line += s.FaintText.Render("  " + e.Location)
			}
			b.WriteString(m.renderRow(s, line, idx == m.cursor, width))
			b.WriteString("\n")
			if idx == m.cursor && m.expanded {
				b.WriteString(renderExperienceCard(s, e, width))
				b.WriteString("\n")
			}
			idx++
		}
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().MaxHeight(height).Render(b.String())
}

func renderExperienceCard(s Styles, e api.Experience, width int) string {
	lines := []string{e.Description}
	if e.Duration != "" || e.Participants > 0 {
		lines = append(lines, s.MutedText.Render(fmt.Sprintf("%s · %d participants", e.Duration, e.Participants)))
	}
	for _, o := range e.Outcomes {
		lines = append(lines, s.SuccessText.Render("✓ ")+o)
	}
	return s.Card.Width(max(width-4, 20)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderShop(s Styles, width, height int) string {
	snap := m.data.products.Snapshot()
	shop := m.shop()

	var b strings.Builder
	b.WriteString(m.renderCategories(s))
	b.WriteString("\n")
	b.WriteString(s.MutedText.Render(fmt.Sprintf("%d products · %d in stock · %d categories · %d featured",
		shop.Stats.Products, shop.Stats.InStock, shop.Stats.Categories, shop.Stats.Featured)))
	b.WriteString("\n\n")

	products := shop.Filter(m.category)
	switch {
	case snap.Loading && len(snap.Items) == 0:
		b.WriteString(m.loadingLine(s))
	case len(products) == 0:
		b.WriteString(s.MutedText.Render(shop.EmptyMessage()))
	default:
		rows := make([]string, len(products))
		for i, p := range products {
			rows[i] = p.Title + "  " + s.AccentText.Render(views.FormatPrice(p.Price))
			if badge := views.StockBadge(p); badge != "" {
				rows[i] += "  " + s.DangerText.Render(badge)
			} else {
				rows[i] += "  " + s.MutedText.Render(views.StockLine(p))
			}
		}
		b.WriteString(m.renderRows(s, rows, width, height-10))
		if m.expanded && m.cursor < len(products) {
			b.WriteString("\n")
			b.WriteString(renderProductCard(s, products[m.cursor], width))
		}
	}
	return b.String()
}

func renderProductCard(s Styles, p api.Product, width int) string {
	label, enabled := views.PurchaseAction(p)
	action := s.TabOn.Render(label)
	if !enabled {
		action = s.StatusStyle("error").Render(label)
	}
	lines := []string{s.Title.Render(p.Title), p.Description, s.AccentText.Render(views.FormatPrice(p.Price)), action}
	return s.Card.Width(max(width-4, 20)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderContact(s Styles) string {
	if m.form == nil {
		return ""
	}
	intro := s.MutedText.Render("Questions about a workshop, a project or an order? Send us a note.")
	hint := s.FaintText.Render("tab next field · ctrl+s send · esc back")
	return m.form.view(s) + "\n" + intro + "\n" + hint
}

func (m Model) renderLogs(s Styles) string {
	return s.MutedText.Render(m.logPath) + "\n" + m.logs.View()
}

// Shared pieces

func (m Model) loadingLine(s Styles) string {
	return m.spinner.View() + s.MutedText.Render(" Loading...")
}

func (m Model) renderCategories(s Styles) string {
	cats := m.categories()
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		active := c == m.category || (m.category == "" && c == views.AllCategories)
		if active {
			parts = append(parts, s.TabOn.Render(c))
		} else {
			parts = append(parts, s.Tab.Render(c))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderRow(s Styles, row string, selected bool, width int) string {
	if selected {
		return s.Selected.Width(width).MaxWidth(width).Render("▸ " + row)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render("  " + row)
}

// renderRows draws rows with the cursor highlighted, scrolled to keep it visible.
func (m Model) renderRows(s Styles, rows []string, width, height int) string {
	height = max(height, 3)
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(rows))
	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, m.renderRow(s, rows[i], i == m.cursor, width))
	}
	return strings.Join(out, "\n")
}
