package api

import (
	"encoding/json"
	"time"
)

const backendTimestampLayout = "2006-01-02"

// Experience is a mentorship program, workshop or achievement.
type Experience struct {
	ID           string   `json:"_id,omitempty"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	Duration     string   `json:"duration"`
	Participants int      `json:"participants"`
	Outcomes     []string `json:"outcomes"`
	Status       string   `json:"status"`
	Date         string   `json:"date,omitempty"`
	Location     string   `json:"location"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	IsPublished  bool     `json:"isPublished"`
	CreatedAt    string   `json:"createdAt,omitempty"`
}

// ParsedDate returns Date as time.Time, zero when missing or malformed.
func (e Experience) ParsedDate() time.Time {
	return parseTime(e.Date)
}

// Project is a showcased electronics project.
type Project struct {
	ID           string   `json:"_id,omitempty"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	ImageURL     string   `json:"imageUrl"`
	GithubURL    string   `json:"githubUrl"`
	LiveURL      string   `json:"liveUrl,omitempty"`
	Status       string   `json:"status"`
	Featured     bool     `json:"featured"`
	IsPublished  bool     `json:"isPublished"`
	CreatedAt    string   `json:"createdAt,omitempty"`
}

// Blog is a markdown article addressed by slug on the public site.
type Blog struct {
	ID          string   `json:"_id,omitempty"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug,omitempty"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Author      string   `json:"author"`
	ImageURL    string   `json:"imageUrl"`
	Tags        []string `json:"tags"`
	IsPublished bool     `json:"isPublished"`
	Views       int      `json:"views,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// ParsedCreatedAt returns CreatedAt as time.Time.
func (b Blog) ParsedCreatedAt() time.Time {
	return parseTime(b.CreatedAt)
}

// Product is a shop item. Stock <= 0 means it cannot be bought.
type Product struct {
	ID          string  `json:"_id,omitempty"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Stock       int     `json:"stock"`
	Featured    bool    `json:"featured"`
	IsPublished bool    `json:"isPublished"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// InStock reports whether the purchase action should be enabled.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Contact is a message left through the contact form.
type Contact struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Status    string `json:"status,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Contact statuses accepted by UpdateStatus.
const (
	ContactNew      = "new"
	ContactRead     = "read"
	ContactReplied  = "replied"
	ContactArchived = "archived"
)

// Ack is the reply to a delete or status change.
type Ack struct {
	Success bool
	Message string
}

// Records carry "_id" from the Mongo backend; the older contract sends "id".

func (e *Experience) UnmarshalJSON(data []byte) error {
	type plain Experience
	var v struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = Experience(v.plain)
	e.ID = firstID(e.ID, v.AltID)
	return nil
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	var v struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Project(v.plain)
	p.ID = firstID(p.ID, v.AltID)
	return nil
}

func (b *Blog) UnmarshalJSON(data []byte) error {
	type plain Blog
	var v struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Blog(v.plain)
	b.ID = firstID(b.ID, v.AltID)
	return nil
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var v struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Product(v.plain)
	p.ID = firstID(p.ID, v.AltID)
	return nil
}

func (c *Contact) UnmarshalJSON(data []byte) error {
	type plain Contact
	var v struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Contact(v.plain)
	c.ID = firstID(c.ID, v.AltID)
	return nil
}

func firstID(primary, alt string) string {
	if primary != "" {
		return primary
	}
	return alt
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
