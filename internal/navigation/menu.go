// Package navigation holds the static dashboard menu and trims it to what
// a session's claims allow.
package navigation

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

// MenuItem is one navigable entry.
type MenuItem struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
	Icon  string `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Section groups menu items under a heading.
type Section struct {
	Title string     `yaml:"title" json:"title"`
	Items []MenuItem `yaml:"items" json:"items"`
}

// Menu is the full static menu definition.
type Menu struct {
	Sections []Section `yaml:"sections" json:"sections"`
}

// Default returns the built-in menu.
func Default() (*Menu, error) {
	return Parse(defaultMenu)
}

// Load reads a menu from path, or the built-in one when path is empty.
func Load(path string) (*Menu, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading menu %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML menu definition.
func Parse(raw []byte) (*Menu, error) {
	var m Menu
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing menu: %w", err)
	}
	for _, s := range m.Sections {
		for _, item := range s.Items {
			if item.Href == "" || item.Href[0] != '/' {
				return nil, fmt.Errorf("menu item %q: href must start with /", item.Label)
			}
		}
	}
	return &m, nil
}

// Filter keeps the items whose href is covered by allowedPages. An empty
// allow-list yields an empty menu.
func Filter(items []MenuItem, allowedPages []string) []MenuItem {
	out := []MenuItem{}
	if len(allowedPages) == 0 {
		return out
	}
	for _, item := range items {
		if authz.IsAllowed(item.Href, allowedPages) {
			out = append(out, item)
		}
	}
	return out
}

// For returns the menu visible to claims, dropping sections left empty.
func (m *Menu) For(claims authz.Claims) []Section {
	pages := claims.AllowedPages()
	out := []Section{}
	for _, s := range m.Sections {
		items := Filter(s.Items, pages)
		if len(items) == 0 {
			continue
		}
		out = append(out, Section{Title: s.Title, Items: items})
	}
	return out
}

// Items returns every item of the menu in order.
func (m *Menu) Items() []MenuItem {
	var items []MenuItem
	for _, s := range m.Sections {
		items = append(items, s.Items...)
	}
	return items
}
