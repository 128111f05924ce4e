package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultOutline []byte

// Item is one entry of a seed outline. An entry with children, or folder: true, is a
// folder; anything else is a document.
type Item struct {
	Title    string `yaml:"title"`
	Folder   bool   `yaml:"folder,omitempty"`
	Content  string `yaml:"content,omitempty"`
	Children []Item `yaml:"children,omitempty"`
}

// IsFolder reports whether the item becomes a folder
func (i Item) IsFolder() bool {
	return i.Folder || len(i.Children) > 0
}

// Count returns the number of nodes the outline creates
func Count(items []Item) int {
	n := 0
	for _, item := range items {
		n += 1 + Count(item.Children)
	}
	return n
}

// Parse decodes a YAML outline (a top-level list of items)
func Parse(data []byte) ([]Item, error) {
	var items []Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse outline: %w", err)
	}
	if err := check(items, ""); err != nil {
		return nil, err
	}
	return items, nil
}

// Default returns the built-in outline
func Default() ([]Item, error) {
	return Parse(defaultOutline)
}

func check(items []Item, path string) error {
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("parse outline: item %s%d has no title", path, i+1)
		}
		if !item.IsFolder() && item.Children != nil {
			return fmt.Errorf("parse outline: document %q cannot have children", item.Title)
		}
		if item.IsFolder() && item.Content != "" {
			return fmt.Errorf("parse outline: folder %q cannot have content", item.Title)
		}
		if err := check(item.Children, fmt.Sprintf("%s%d.", path, i+1)); err != nil {
			return err
		}
	}
	return nil
}
