package forms

import (
	"strconv"
	"strings"
	"time"

	"github.com/electrophobia/epterm/internal/api"
)

// Select options offered by the admin forms. The first entry is the default.
var (
	BlogCategories     = []string{"Tutorials", "Project Guides", "Tips & Tricks", "Industry News", "Hardware Reviews"}
	ProjectCategories  = []string{"IoT", "Robotics", "Automation", "PCB Design", "Embedded", "Other"}
	ProjectStatuses    = []string{"In Progress", "Planned", "Completed"}
	ExperienceTypes    = []string{"mentorship", "workshop", "achievement"}
	ExperienceStatuses = []string{"upcoming", "ongoing", "completed"}
	ProductCategories  = []string{"PCB", "Kit", "Module", "Component", "Other"}
	ContactStatuses    = []string{api.ContactNew, api.ContactRead, api.ContactReplied, api.ContactArchived}
)

const defaultAuthor = "ElectroPhobia Team"

// BlogPayload builds a blog from form input. Tags are comma separated; a blank
// slug is derived from the title.
func BlogPayload(f Fields) (api.Blog, error) {
	var v validator
	v.require(f, "title", "excerpt", "content")
	category := f.GetOr("category", BlogCategories[0])
	v.oneOf("category", category, BlogCategories)

	blog := api.Blog{
		Title:       f.Get("title"),
		Slug:        f.Get("slug"),
		Excerpt:     f.Get("excerpt"),
		Content:     f.Get("content"),
		Category:    category,
		Author:      f.GetOr("author", defaultAuthor),
		ImageURL:    f.Get("imageUrl"),
		Tags:        SplitList(f["tags"], ","),
		IsPublished: f.Bool("isPublished", true),
	}
	if blog.Slug == "" {
		blog.Slug = Slugify(blog.Title)
	}
	return blog, v.err()
}

// BlogFields prefills the edit form.
func BlogFields(b api.Blog) Fields {
	return Fields{
		"title":       b.Title,
		"slug":        b.Slug,
		"excerpt":     b.Excerpt,
		"content":     b.Content,
		"category":    b.Category,
		"author":      b.Author,
		"imageUrl":    b.ImageURL,
		"tags":        JoinList(b.Tags, ","),
		"isPublished": strconv.FormatBool(b.IsPublished),
	}
}

// ProjectPayload builds a project. Technologies are comma separated.
func ProjectPayload(f Fields) (api.Project, error) {
	var v validator
	v.require(f, "title")
	category := f.GetOr("category", ProjectCategories[0])
	status := f.GetOr("status", ProjectStatuses[0])
	v.oneOf("category", category, ProjectCategories)
	v.oneOf("status", status, ProjectStatuses)

	return api.Project{
		Title:        f.Get("title"),
		Category:     category,
		Description:  f.Get("description"),
		Technologies: SplitList(f["technologies"], ","),
		ImageURL:     f.Get("imageUrl"),
		GithubURL:    f.Get("githubUrl"),
		LiveURL:      f.Get("liveUrl"),
		Status:       status,
		Featured:     f.Bool("featured", false),
		IsPublished:  f.Bool("isPublished", true),
	}, v.err()
}

// ProjectFields prefills the edit form.
func ProjectFields(p api.Project) Fields {
	return Fields{
		"title":        p.Title,
		"category":     p.Category,
		"description":  p.Description,
		"technologies": JoinList(p.Technologies, ","),
		"imageUrl":     p.ImageURL,
		"githubUrl":    p.GithubURL,
		"liveUrl":      p.LiveURL,
		"status":       p.Status,
		"featured":     strconv.FormatBool(p.Featured),
		"isPublished":  strconv.FormatBool(p.IsPublished),
	}
}

// ExperiencePayload builds an experience. Outcomes are one per line; a
// non-numeric participant count is read as zero.
func ExperiencePayload(f Fields) (api.Experience, error) {
	var v validator
	v.require(f, "title")
	kind := f.GetOr("type", ExperienceTypes[0])
	status := f.GetOr("status", ExperienceStatuses[0])
	v.oneOf("type", kind, ExperienceTypes)
	v.oneOf("status", status, ExperienceStatuses)

	date := f.Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			v.errs = append(v.errs, &FieldError{Field: "date", Reason: "must look like 2006-01-02"})
		}
	}
	participants, err := strconv.Atoi(f.Get("participants"))
	if err != nil || participants < 0 {
		participants = 0
	}

	return api.Experience{
		Title:        f.Get("title"),
		Type:         kind,
		Description:  f.Get("description"),
		Duration:     f.Get("duration"),
		Participants: participants,
		Outcomes:     SplitList(f["outcomes"], "\n"),
		Status:       status,
		Date:         date,
		Location:     f.Get("location"),
		ImageURL:     f.Get("imageUrl"),
		IsPublished:  f.Bool("isPublished", true),
	}, v.err()
}

// ExperienceFields prefills the edit form. Dates are cut to the day.
func ExperienceFields(e api.Experience) Fields {
	date := ""
	if t := e.ParsedDate(); !t.IsZero() {
		date = t.UTC().Format("2006-01-02")
	}
	return Fields{
		"title":        e.Title,
		"type":         e.Type,
		"description":  e.Description,
		"duration":     e.Duration,
		"participants": strconv.Itoa(e.Participants),
		"outcomes":     JoinList(e.Outcomes, "\n"),
		"status":       e.Status,
		"date":         date,
		"location":     e.Location,
		"imageUrl":     e.ImageURL,
		"isPublished":  strconv.FormatBool(e.IsPublished),
	}
}

// ProductPayload builds a product. Price and stock must be valid numbers.
func ProductPayload(f Fields) (api.Product, error) {
	var v validator
	v.require(f, "title", "price")
	category := f.GetOr("category", ProductCategories[0])
	v.oneOf("category", category, ProductCategories)

	return api.Product{
		Title:       f.Get("title"),
		Category:    category,
		Price:       v.float(f, "price"),
		Description: f.Get("description"),
		ImageURL:    f.Get("imageUrl"),
		Stock:       v.int(f, "stock"),
		Featured:    f.Bool("featured", false),
		IsPublished: f.Bool("isPublished", true),
	}, v.err()
}

// ProductFields prefills the edit form.
func ProductFields(p api.Product) Fields {
	return Fields{
		"title":       p.Title,
		"category":    p.Category,
		"price":       strconv.FormatFloat(p.Price, 'f', -1, 64),
		"description": p.Description,
		"imageUrl":    p.ImageURL,
		"stock":       strconv.Itoa(p.Stock),
		"featured":    strconv.FormatBool(p.Featured),
		"isPublished": strconv.FormatBool(p.IsPublished),
	}
}

// ContactPayload builds a contact message from the public form.
func ContactPayload(f Fields) (api.Contact, error) {
	var v validator
	v.require(f, "name", "email", "message")
	email := f.Get("email")
	if email != "" && !strings.Contains(email, "@") {
		v.errs = append(v.errs, &FieldError{Field: "email", Reason: "must be a valid email address"})
	}
	return api.Contact{
		Name:    f.Get("name"),
		Email:   email,
		Subject: f.Get("subject"),
		Message: f.Get("message"),
	}, v.err()
}
