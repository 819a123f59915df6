package views

import (
	"fmt"
	"strings"

	"github.com/electrophobia/epterm/internal/api"
)

// Field accessors shared by the page models.
var (
	BlogPublished       = func(b api.Blog) bool { return b.IsPublished }
	BlogCategory        = func(b api.Blog) string { return b.Category }
	BlogID              = func(b api.Blog) string { return b.ID }
	ProjectPublished    = func(p api.Project) bool { return p.IsPublished }
	ProjectCategory     = func(p api.Project) string { return p.Category }
	ProjectID           = func(p api.Project) string { return p.ID }
	ExperiencePublished = func(e api.Experience) bool { return e.IsPublished }
	ExperienceID        = func(e api.Experience) string { return e.ID }
	ProductPublished    = func(p api.Product) bool { return p.IsPublished }
	ProductCategory     = func(p api.Product) string { return p.Category }
	ProductID           = func(p api.Product) string { return p.ID }
	ContactID           = func(c api.Contact) string { return c.ID }
)

const featuredLimit = 3

// FeaturedProjects is the home page strip: published, featured, first three.
func FeaturedProjects(all []api.Project) []api.Project {
	out := make([]api.Project, 0, featuredLimit)
	for _, p := range all {
		if p.Featured && p.IsPublished {
			out = append(out, p)
			if len(out) == featuredLimit {
				break
			}
		}
	}
	return out
}

// SearchBlogs keeps blogs in category whose title, excerpt or content contains
// query, ignoring case.
func SearchBlogs(blogs []api.Blog, category, query string) []api.Blog {
	inCategory := InCategory(blogs, category, BlogCategory)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return inCategory
	}
	out := make([]api.Blog, 0, len(inCategory))
	for _, b := range inCategory {
		if containsFold(b.Title, q) || containsFold(b.Excerpt, q) || containsFold(b.Content, q) {
			out = append(out, b)
		}
	}
	return out
}

// BlogsEmptyMessage explains an empty blog list.
func BlogsEmptyMessage(total int, query string) string {
	switch {
	case strings.TrimSpace(query) != "":
		return "No blogs found matching your search."
	case total == 0:
		return "No blogs published yet."
	default:
		return "No blogs found in this category."
	}
}

// BlogPath is how a blog is addressed on the detail page.
func BlogPath(b api.Blog) string {
	if b.Slug != "" {
		return b.Slug
	}
	return b.ID
}

// ExperienceGroups splits experiences by type for the experiences page.
type ExperienceGroups struct {
	Mentorship   []api.Experience
	Workshops    []api.Experience
	Achievements []api.Experience
}

// GroupExperiences buckets published experiences. Unknown types are dropped.
func GroupExperiences(all []api.Experience) ExperienceGroups {
	g := ExperienceGroups{
		Mentorship:   []api.Experience{},
		Workshops:    []api.Experience{},
		Achievements: []api.Experience{},
	}
	for _, e := range all {
		if !e.IsPublished {
			continue
		}
		switch e.Type {
		case "mentorship":
			g.Mentorship = append(g.Mentorship, e)
		case "workshop":
			g.Workshops = append(g.Workshops, e)
		case "achievement":
			g.Achievements = append(g.Achievements, e)
		}
	}
	return g
}

// Stock labels.
const (
	OutOfStock   = "Out of Stock"
	ContactToBuy = "Contact to Buy"
)

// StockBadge is the badge on a product card, empty when in stock.
func StockBadge(p api.Product) string {
	if !p.InStock() {
		return OutOfStock
	}
	return ""
}

// StockLine is the availability line under the price.
func StockLine(p api.Product) string {
	if !p.InStock() {
		return ""
	}
	return fmt.Sprintf("%d in stock", p.Stock)
}

// PurchaseAction returns the purchase button label and whether it is enabled.
func PurchaseAction(p api.Product) (string, bool) {
	if !p.InStock() {
		return OutOfStock, false
	}
	return ContactToBuy, true
}

// FormatPrice renders a price with two decimals.
func FormatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

// ShopStats is the summary row under the product grid.
type ShopStats struct {
	Products   int
	InStock    int
	Categories int
	Featured   int
}

// Shop is the shop page model.
type Shop struct {
	Products   []api.Product
	Categories []string
	Stats      ShopStats
}

// NewShop keeps published products and derives the category chips and stats.
func NewShop(all []api.Product) Shop {
	products := Published(all, ProductPublished)
	s := Shop{Products: products, Categories: Categories(products, ProductCategory)}
	s.Stats.Products = len(products)
	s.Stats.Categories = len(s.Categories) - 1
	for _, p := range products {
		if p.InStock() {
			s.Stats.InStock++
		}
		if p.Featured {
			s.Stats.Featured++
		}
	}
	return s
}

// Filter returns the products in category.
func (s Shop) Filter(category string) []api.Product {
	return InCategory(s.Products, category, ProductCategory)
}

// EmptyMessage explains an empty product grid.
func (s Shop) EmptyMessage() string {
	if len(s.Products) == 0 {
		return "No products available yet."
	}
	return "No products found in this category."
}

// DashboardStats are the admin dashboard counters.
type DashboardStats struct {
	Experiences int
	Projects    int
	Blogs       int
	Products    int
	Contacts    int
	NewContacts int
}

// CountContacts fills the contact counters.
func (d *DashboardStats) CountContacts(contacts []api.Contact) {
	d.Contacts = len(contacts)
	d.NewContacts = 0
	for _, c := range contacts {
		if c.Status == "" || c.Status == api.ContactNew {
			d.NewContacts++
		}
	}
}

// ContactFilterAll selects every contact in the inbox.
const ContactFilterAll = "all"

// FilterContacts keeps contacts with status; "all" keeps everything. A missing
// status counts as new.
func FilterContacts(contacts []api.Contact, status string) []api.Contact {
	out := make([]api.Contact, 0, len(contacts))
	for _, c := range contacts {
		if status == ContactFilterAll || status == "" || contactStatus(c) == status {
			out = append(out, c)
		}
	}
	return out
}

// ContactCounts returns the count per inbox tab, keyed by status plus "all".
func ContactCounts(contacts []api.Contact) map[string]int {
	counts := map[string]int{ContactFilterAll: len(contacts)}
	for _, c := range contacts {
		counts[contactStatus(c)]++
	}
	return counts
}

func contactStatus(c api.Contact) string {
	if c.Status == "" {
		return api.ContactNew
	}
	return c.Status
}
