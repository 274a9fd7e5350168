// Package pages renders the catalog views as plain text for the terminal.
package pages

import (
	"context"
	"io"
	"sort"
)

// Page is one terminal command backed by a view.
type Page interface {
	// Name is the command that selects the page (e.g. "games", "developer")
	Name() string

	// Usage is a one-line synopsis for help output
	Usage() string

	// Run renders the page for args to w
	Run(ctx context.Context, w io.Writer, args []string) error
}

// Registry manages the available pages
type Registry struct {
	pages map[string]Page
}

// NewRegistry creates an empty page registry
func NewRegistry() *Registry {
	return &Registry{
		pages: make(map[string]Page),
	}
}

// Register adds a page to the registry
func (r *Registry) Register(page Page) {
	r.pages[page.Name()] = page
}

// GetPage retrieves a page by name
func (r *Registry) GetPage(name string) (Page, bool) {
	page, exists := r.pages[name]
	return page, exists
}

// List returns all registered page names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
