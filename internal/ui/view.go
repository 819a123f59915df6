package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/electrophobia/epterm/internal/logtail"
	"github.com/electrophobia/epterm/internal/realtime"
)

const logo = "⚡ ElectroPhobia"

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.confirm.Visible {
		return m.renderConfirm()
	}

	styles := m.theme.Styles()
	header := m.renderHeader(styles)
	footer := m.renderFooter(styles)
	height := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 3)
	width := max(m.width-2, 20)

	body := lipgloss.NewStyle().
		Padding(0, 1).
		Width(m.width).
		Height(height).
		MaxHeight(height).
		Render(m.renderContent(styles, width, height))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderContent(s Styles, width, height int) string {
	switch m.route.Name {
	case RouteHome:
		return m.renderHome(s, width, height)
	case RouteAbout:
		return m.renderAbout(s)
	case RouteBlogs:
		return m.renderBlogs(s, width, height)
	case RouteBlog:
		return m.renderBlog(s)
	case RouteProjects:
		return m.renderProjects(s, width, height)
	case RouteExperiences:
		return m.renderExperiences(s, width, height)
	case RouteShop:
		return m.renderShop(s, width, height)
	case RouteContact:
		return m.renderContact(s)
	case RouteLogs:
		return m.renderLogs(s)
	case RouteLogin:
		return m.renderLogin(s)
	case RouteAdmin:
		return m.renderDashboard(s, width, height)
	case RouteAdminForm:
		return m.renderEditor(s)
	case RouteAdminInbox:
		return m.renderInbox(s, width, height)
	}
	return ""
}

func (m Model) renderHeader(s Styles) string {
	tabs := make([]string, 0, len(navOrder))
	for i, name := range navOrder {
		label := string(rune('1'+i)) + " " + routes[name].title
		active := m.route.Name == name || (name == RouteBlogs && m.route.Name == RouteBlog)
		if active {
			tabs = append(tabs, s.TabOn.Render(label))
		} else {
			tabs = append(tabs, s.Tab.Render(label))
		}
	}
	left := s.Logo.Render(logo) + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var right []string
	if m.watch != nil {
		right = append(right, m.renderLive(s))
	}
	if admin, ok := m.session.Admin(); ok {
		right = append(right, s.AccentText.Render(admin.Email))
	}
	rightText := strings.Join(right, "  ")

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(rightText)-2, 1)
	line := left + strings.Repeat(" ", gap) + rightText

	title := routes[m.route.Name].title
	if isAdminRoute(m.route.Name) {
		title = "Admin · " + title
	}
	sub := s.MutedText.Render(title)
	return s.Header.Width(m.width).Render(line) + "\n" + lipgloss.NewStyle().Padding(0, 1).Render(sub)
}

func (m Model) renderLive(s Styles) string {
	switch m.live {
	case realtime.Connected:
		return s.SuccessText.Render("● live")
	case realtime.Connecting:
		return s.WarningText.Render("◌ connecting")
	}
	return s.FaintText.Render("○ offline")
}

func (m Model) renderFooter(s Styles) string {
	left := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.toast.Visible {
		left = s.StatusStyle(string(m.toast.Kind)).Render(m.toast.Message)
	}
	return s.Footer.Width(m.width).Render(left)
}

// renderMarkdown renders blog content with the theme's glamour style. It falls
// back to the raw text when rendering fails.
func (m Model) renderMarkdown(content string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.Glamour),
		glamour.WithWordWrap(max(m.detail.Width-2, 20)),
	)
	if err != nil {
		m.log.Warn("markdown renderer", "err", err)
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		m.log.Warn("render markdown", "err", err)
		return content
	}
	return out
}

// renderLogLines formats slog JSON lines and colours them by level.
func (m Model) renderLogLines(lines []string) string {
	s := m.theme.Styles()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry := logtail.Parse(line)
		text := entry.Format()
		switch strings.ToUpper(entry.Level) {
		case "ERROR":
			text = s.DangerText.Render(text)
		case "WARN":
			text = s.WarningText.Render(text)
		case "DEBUG":
			text = s.FaintText.Render(text)
		default:
			text = s.Text.Render(text)
		}
		if entry.Time != "" {
			text = s.FaintText.Render(shortTime(entry.Time)) + " " + text
		}
		out = append(out, text)
	}
	if len(out) == 0 {
		return s.MutedText.Render("No log entries yet.")
	}
	return strings.Join(out, "\n")
}

// shortTime keeps the clock part of an RFC 3339 timestamp.
func shortTime(ts string) string {
	if _, clock, ok := strings.Cut(ts, "T"); ok && len(clock) >= 8 {
		return clock[:8]
	}
	return ts
}
