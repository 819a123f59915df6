package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}

var helpSections = []helpSection{
	{
		title: "Navigation",
		items: []helpItem{
			{"1-7", "Home/About/Blogs/Projects/Experiences/Shop/Contact"},
			{"tab/shift+tab", "Next/previous page"},
			{"esc", "Back"},
			{"j/k", "Move down/up"},
			{"g/G", "Go to top/bottom"},
			{"enter", "Open or expand"},
		},
	},
	{
		title: "Pages",
		items: []helpItem{
			{"/", "Search blogs"},
			{"c", "Cycle category"},
			{"r", "Refresh"},
			{"L", "Client logs"},
		},
	},
	{
		title: "Admin",
		items: []helpItem{
			{"a", "Admin panel"},
			{"h/l", "Switch tab or filter"},
			{"n/e/d", "New/edit/delete record"},
			{"s", "Cycle message status"},
			{"i", "Contact inbox"},
			{"ctrl+s", "Save form"},
			{"X", "Log out"},
		},
	},
	{
		title: "General",
		items: []helpItem{
			{"T", "Cycle theme"},
			{"?", "Toggle help"},
			{"q/ctrl+c", "Quit"},
		},
	},
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(16)
	for i, section := range helpSections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(helpSections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(min(72, max(m.width-4, 30)))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// renderConfirm renders the delete confirmation dialog over the page.
func (m Model) renderConfirm() string {
	styles := m.theme.Styles()
	content := styles.DangerText.Render(m.confirm.Title) + "\n\n" +
		styles.Text.Render(m.confirm.Message) + "\n\n" +
		styles.FaintText.Render("y confirm · n cancel")

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Danger)).
		Padding(1, 2).
		Width(min(60, max(m.width-4, 30)))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
