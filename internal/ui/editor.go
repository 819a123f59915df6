package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/forms"
	"github.com/electrophobia/epterm/internal/state"
	"github.com/electrophobia/epterm/internal/views"
)

// Dashboard tabs, in display order.
var dashboardTabs = []string{"blog", "project", "experience", "product"}

type editorSpec struct {
	title    string
	build    func() *form
	validate func(forms.Fields) error
	prefill func(d *data, id string) (forms.Fields, bool)
	fetch    func(ctx context.Context, c *api.Client, id string) (forms.Fields, error)
	save     func(ctx context.Context, c *api.Client, id string, f forms.Fields) error
	remove   func(ctx context.Context, c *api.Client, id string) error
}

func editorFor[T any](
	title string,
	res func(*api.Client) *api.Resource[T],
	list func(*data) *state.List[T],
	idOf func(T) string,
	toFields func(T) forms.Fields,
	payload func(forms.Fields) (T, error),
	build func() *form,
) editorSpec {
	return editorSpec{
		title: title,
		build: build,
		validate: func(f forms.Fields) error {
			_, err := payload(f)
			return err
		},
		prefill: func(d *data, id string) (forms.Fields, bool) {
			for _, item := range list(d).Snapshot().Items {
				if idOf(item) == id {
					return toFields(item), true
				}
			}
			return nil, false
		},
		fetch: func(ctx context.Context, c *api.Client, id string) (forms.Fields, error) {
			item, err := res(c).Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if item == nil {
				return nil, fmt.Errorf("%s not found", strings.ToLower(title))
			}
			return toFields(*item), nil
		},
		save: func(ctx context.Context, c *api.Client, id string, f forms.Fields) error {
			p, err := payload(f)
			if err != nil {
				return err
			}
			if id == "" {
				_, err = res(c).Create(ctx, p)
			} else {
				_, err = res(c).Update(ctx, id, p)
			}
			return err
		},
		remove: func(ctx context.Context, c *api.Client, id string) error {
			_, err := res(c).Delete(ctx, id)
			return err
		},
	}
}

var editors = map[string]editorSpec{
	"blog": editorFor("Blog",
		func(c *api.Client) *api.Resource[api.Blog] { return c.Blogs.Resource },
		func(d *data) *state.List[api.Blog] { return d.blogs },
		views.BlogID, forms.BlogFields, forms.BlogPayload, newBlogForm),
	"project": editorFor("Project",
		func(c *api.Client) *api.Resource[api.Project] { return c.Projects },
		func(d *data) *state.List[api.Project] { return d.projects },
		views.ProjectID, forms.ProjectFields, forms.ProjectPayload, newProjectForm),
	"experience": editorFor("Experience",
		func(c *api.Client) *api.Resource[api.Experience] { return c.Experiences },
		func(d *data) *state.List[api.Experience] { return d.experiences },
		views.ExperienceID, forms.ExperienceFields, forms.ExperiencePayload, newExperienceForm),
	"product": editorFor("Product",
		func(c *api.Client) *api.Resource[api.Product] { return c.Products },
		func(d *data) *state.List[api.Product] { return d.products },
		views.ProductID, forms.ProductFields, forms.ProductPayload, newProductForm),
	"contact": {
		title: "Message",
		remove: func(ctx context.Context, c *api.Client, id string) error {
			_, err := c.Contacts.Delete(ctx, id)
			return err
		},
	},
}

func newBlogForm() *form {
	return newForm("Blog",
		newTextField("title", "Title", "Getting Started with Arduino"),
		newTextField("slug", "Slug", "generated from the title"),
		newAreaField("excerpt", "Excerpt", "One or two sentences", 3),
		newAreaField("content", "Content", "Markdown", 10),
		newChoiceField("category", "Category", forms.BlogCategories),
		newTextField("author", "Author", "ElectroPhobia Team"),
		newTextField("imageUrl", "Image URL", "https://"),
		newTextField("tags", "Tags", "Arduino, IoT"),
		newToggleField("isPublished", "Published", true),
	)
}

func newProjectForm() *form {
	return newForm("Project",
		newTextField("title", "Title", "Smart Plant Monitor"),
		newChoiceField("category", "Category", forms.ProjectCategories),
		newAreaField("description", "Description", "What it does and how", 5),
		newTextField("technologies", "Technologies", "ESP32, MQTT"),
		newTextField("imageUrl", "Image URL", "https://"),
		newTextField("githubUrl", "GitHub URL", "https://github.com/"),
		newTextField("liveUrl", "Live URL", "https://"),
		newChoiceField("status", "Status", forms.ProjectStatuses),
		newToggleField("featured", "Featured", false),
		newToggleField("isPublished", "Published", true),
	)
}

func newExperienceForm() *form {
	return newForm("Experience",
		newTextField("title", "Title", "Arduino Bootcamp"),
		newChoiceField("type", "Type", forms.ExperienceTypes),
		newAreaField("description", "Description", "", 4),
		newTextField("duration", "Duration", "6 weeks"),
		newTextField("participants", "Participants", "0"),
		newAreaField("outcomes", "Outcomes", "One per line", 4),
		newChoiceField("status", "Status", forms.ExperienceStatuses),
		newTextField("date", "Date", "2006-01-02"),
		newTextField("location", "Location", "Online"),
		newTextField("imageUrl", "Image URL", "https://"),
		newToggleField("isPublished", "Published", true),
	)
}

func newProductForm() *form {
	return newForm("Product",
		newTextField("title", "Title", "ESP32 Dev Board"),
		newChoiceField("category", "Category", forms.ProductCategories),
		newTextField("price", "Price", "0.00"),
		newAreaField("description", "Description", "", 4),
		newTextField("imageUrl", "Image URL", "https://"),
		newTextField("stock", "Stock", "0"),
		newToggleField("featured", "Featured", false),
		newToggleField("isPublished", "Published", true),
	)
}

func newContactForm() *form {
	f := newForm("Get in Touch",
		newTextField("name", "Name", "Your name"),
		newTextField("email", "Email", "you@example.com"),
		newTextField("subject", "Subject", "Workshop enquiry"),
		newAreaField("message", "Message", "How can we help?", 6),
	)
	f.busyText = "Sending..."
	return f
}

func newLoginForm() *form {
	f := newForm("Admin Login",
		newTextField("email", "Email", "admin@electrophobia.dev"),
		newSecretField("password", "Password"),
	)
	f.busyText = "Logging in..."
	return f
}

func editorRoute(kind, id string) Route {
	return Route{Name: RouteAdminForm, Param: kind + ":" + id}
}

func splitParam(param string) (kind, id string) {
	kind, id, _ = strings.Cut(param, ":")
	return kind, id
}

func (m Model) enterEditor() (Model, tea.Cmd) {
	kind, id := splitParam(m.route.Param)
	spec, ok := editors[kind]
	if !ok || spec.build == nil {
		m.log.Warn("no editor for kind", "kind", kind)
		return m.navigate(Route{Name: RouteAdmin})
	}
	f := spec.build()
	f.kind, f.id = kind, id
	if id == "" {
		f.title = "New " + spec.title
	} else {
		f.title = "Edit " + spec.title
	}
	f.setWidth(m.width)
	m.form = f
	if id == "" {
		return m, f.focusCmd()
	}
	if fields, ok := spec.prefill(m.data, id); ok {
		f.fill(fields)
		return m, f.focusCmd()
	}

	f.busy = true
	ctx, client := m.viewCtx(), m.client
	fetch := func() tea.Msg {
		fields, err := spec.fetch(ctx, client, id)
		return editorLoadedMsg{ctx: ctx, kind: kind, fields: fields, err: err}
	}
	return m, tea.Batch(f.focusCmd(), fetch)
}

func (m Model) handleEditorLoaded(msg editorLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.ctx.Err() != nil || m.form == nil {
		return m, nil
	}
	m.form.busy = false
	if msg.err != nil {
		if api.IsUnauthorized(msg.err) {
			return m, nil
		}
		toast := m.notify("Failed to load "+strings.ToLower(editors[msg.kind].title)+": "+errorText(msg.err), state.ToastError)
		next, cmd := m.navigate(Route{Name: RouteAdmin})
		return next, tea.Batch(toast, cmd)
	}
	m.form.fill(msg.fields)
	return m, nil
}

// handleFormKey drives the editor and the public contact form.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		return m.back()
	case key.Matches(msg, m.keys.Submit):
		if m.form.busy {
			return m, nil
		}
		if m.route.Name == RouteContact {
			return m.submitContact()
		}
		return m.submitEditor()
	}
	return m, m.form.handleKey(msg)
}

func (m Model) submitEditor() (tea.Model, tea.Cmd) {
	f := m.form
	spec := editors[f.kind]
	values := f.values()
	if err := spec.validate(values); err != nil {
		return m, m.notify(errorText(err), state.ToastError)
	}
	f.busy = true
	ctx, client, kind, id := m.ctx, m.client, f.kind, f.id
	return m, func() tea.Msg {
		err := spec.save(ctx, client, id, values)
		return savedMsg{kind: kind, created: id == "", err: err}
	}
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		m.form.busy = false
	}
	title := editors[msg.kind].title
	if msg.err != nil {
		if api.IsUnauthorized(msg.err) {
			return m, nil
		}
		m.log.Warn("save failed", "kind", msg.kind, "err", msg.err)
		return m, m.notify("Failed to save "+strings.ToLower(title)+": "+errorText(msg.err), state.ToastError)
	}
	verb := "updated"
	if msg.created {
		verb = "created"
	}
	toast := m.notify(title+" "+verb+" successfully", state.ToastSuccess)
	if m.route.Name != RouteAdminForm {
		return m, toast
	}
	for i, k := range dashboardTabs {
		if k == msg.kind {
			m.adminTab = i
		}
	}
	next, cmd := m.navigate(Route{Name: RouteAdmin})
	return next, tea.Batch(toast, cmd)
}
