package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/electrophobia/epterm/internal/forms"
)

type fieldKind int

const (
	textField fieldKind = iota
	secretField
	areaField
	choiceField
	toggleField
)

type formField struct {
	key     string
	label   string
	kind    fieldKind
	options []string
	input   textinput.Model
	area    textarea.Model
	choice  int
	on      bool
}

func newTextField(key, label, placeholder string) *formField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	in.CharLimit = 512
	return &formField{key: key, label: label, kind: textField, input: in}
}

func newSecretField(key, label string) *formField {
	f := newTextField(key, label, "")
	f.kind = secretField
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func newAreaField(key, label, placeholder string, lines int) *formField {
	area := textarea.New()
	area.Placeholder = placeholder
	area.ShowLineNumbers = false
	area.CharLimit = 0
	area.SetHeight(lines)
	return &formField{key: key, label: label, kind: areaField, area: area}
}

// newChoiceField offers options; the first one is selected until a value is set.
func newChoiceField(key, label string, options []string) *formField {
	return &formField{key: key, label: label, kind: choiceField, options: options}
}

func newToggleField(key, label string, on bool) *formField {
	return &formField{key: key, label: label, kind: toggleField, on: on}
}

func (f *formField) value() string {
	switch f.kind {
	case areaField:
		return f.area.Value()
	case choiceField:
		if len(f.options) == 0 {
			return ""
		}
		return f.options[f.choice]
	case toggleField:
		return strconv.FormatBool(f.on)
	default:
		return f.input.Value()
	}
}

func (f *formField) set(v string) {
	switch f.kind {
	case areaField:
		f.area.SetValue(v)
	case choiceField:
		for i, opt := range f.options {
			if opt == v {
				f.choice = i
				return
			}
		}
	case toggleField:
		if v != "" {
			f.on = forms.Fields{f.key: v}.Bool(f.key, f.on)
		}
	default:
		f.input.SetValue(v)
	}
}

func (f *formField) focus() tea.Cmd {
	switch f.kind {
	case areaField:
		return f.area.Focus()
	case textField, secretField:
		return f.input.Focus()
	}
	return nil
}

func (f *formField) blur() {
	switch f.kind {
	case areaField:
		f.area.Blur()
	case textField, secretField:
		f.input.Blur()
	}
}

// form is a vertical list of fields with one focused at a time.
type form struct {
	title  string
	kind   string
	id     string
	fields []*formField
	focus  int
	busy   bool

	// busyText replaces "Saving..." while busy.
	busyText string
}

func newForm(title string, fields ...*formField) *form {
	return &form{title: title, fields: fields}
}

func (f *form) focusCmd() tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus].focus()
}

func (f *form) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.fields[f.focus].blur()
	n := len(f.fields)
	f.focus = ((f.focus+delta)%n + n) % n
	return f.fields[f.focus].focus()
}

func (f *form) field(key string) *formField {
	for _, fld := range f.fields {
		if fld.key == key {
			return fld
		}
	}
	return nil
}

func (f *form) values() forms.Fields {
	out := forms.Fields{}
	for _, fld := range f.fields {
		out[fld.key] = fld.value()
	}
	return out
}

func (f *form) fill(values forms.Fields) {
	for k, v := range values {
		if fld := f.field(k); fld != nil {
			fld.set(v)
		}
	}
}

func (f *form) reset() {
	for _, fld := range f.fields {
		switch fld.kind {
		case areaField:
			fld.area.Reset()
		case choiceField:
			fld.choice = 0
		case textField, secretField:
			fld.input.Reset()
		}
	}
}

// handleKey moves between fields and edits the focused one. Submission is the caller's job.
func (f *form) handleKey(msg tea.KeyMsg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	cur := f.fields[f.focus]
	switch msg.String() {
	case "tab", "down":
		if msg.String() == "down" && cur.kind == areaField {
			break
		}
		return f.move(1)
	case "shift+tab", "up":
		if msg.String() == "up" && cur.kind == areaField {
			break
		}
		return f.move(-1)
	case "enter":
		if cur.kind != areaField {
			return f.move(1)
		}
	}

	switch cur.kind {
	case choiceField:
		switch msg.String() {
		case "left", "h":
			cur.choice = (cur.choice - 1 + len(cur.options)) % len(cur.options)
		case "right", "l", " ":
			cur.choice = (cur.choice + 1) % len(cur.options)
		}
		return nil
	case toggleField:
		switch msg.String() {
		case " ", "x", "left", "right", "h", "l":
			cur.on = !cur.on
		}
		return nil
	}
	return f.update(msg)
}

// update forwards msg to the focused text input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	cur := f.fields[f.focus]
	var cmd tea.Cmd
	switch cur.kind {
	case areaField:
		cur.area, cmd = cur.area.Update(msg)
	case textField, secretField:
		cur.input, cmd = cur.input.Update(msg)
	}
	return cmd
}

func (f *form) setWidth(width int) {
	w := max(width-22, 20)
	for _, fld := range f.fields {
		switch fld.kind {
		case areaField:
			fld.area.SetWidth(w)
		case textField, secretField:
			fld.input.Width = w
		}
	}
}

func (f *form) view(styles Styles) string {
	label := lipgloss.NewStyle().Width(16)
	var b strings.Builder
	b.WriteString(styles.Title.Render(f.title))
	b.WriteString("\n\n")
	for i, fld := range f.fields {
		focused := i == f.focus
		name := label.Inherit(styles.MutedText).Render(fld.label)
		if focused {
			name = label.Inherit(styles.AccentText).Render("▸ " + fld.label)
		}
		b.WriteString(name)
		b.WriteString(" ")
		switch fld.kind {
		case choiceField:
			b.WriteString(renderChoice(styles, fld, focused))
		case toggleField:
			box := "[ ]"
			if fld.on {
				box = "[x]"
			}
			b.WriteString(styles.Text.Render(box))
		case areaField:
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().MarginLeft(17).Render(fld.area.View()))
		default:
			b.WriteString(fld.input.View())
		}
		b.WriteString("\n")
	}
	if f.busy {
		b.WriteString("\n")
		text := f.busyText
		if text == "" {
			text = "Saving..."
		}
		b.WriteString(styles.InfoText.Render(text))
	}
	return b.String()
}

func renderChoice(styles Styles, fld *formField, focused bool) string {
	if len(fld.options) == 0 {
		return ""
	}
	if !focused {
		return styles.Text.Render(fld.options[fld.choice])
	}
	parts := make([]string, 0, len(fld.options))
	for i, opt := range fld.options {
		if i == fld.choice {
			parts = append(parts, styles.TabOn.Render(opt))
		} else {
			parts = append(parts, styles.Tab.Render(opt))
		}
	}
	return strings.Join(parts, "")
}
