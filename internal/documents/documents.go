// Package documents holds the catalog of reference documents the bot can
// send on request. The catalog is loaded once at startup and read-only
// afterwards.
package documents

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document kinds.
const (
	KindText = "text"
	KindFile = "file"
)

// Descriptor describes one document offered to users. Text documents carry
// their body in Content; file documents point at a path on disk.
type Descriptor struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Kind    string `json:"type"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Catalog is an ordered, id-addressable set of documents.
type Catalog struct {
	docs []Descriptor
	byID map[string]Descriptor
}

// Load reads a JSON catalog file. A missing or unconfigured path yields an
// empty catalog so the bot can run without documents.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return newCatalog(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newCatalog(nil), nil
		}
		return nil, fmt.Errorf("failed to read document catalog: %w", err)
	}

	var docs []Descriptor
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse document catalog: %w", err)
	}

	for i, d := range docs {
		if d.ID == "" || d.Title == "" {
			return nil, fmt.Errorf("document %d: id and title are required", i)
		}
		switch d.Kind {
		case KindText, KindFile:
		default:
			return nil, fmt.Errorf("document %q: unknown type %q", d.ID, d.Kind)
		}
	}

	return newCatalog(docs), nil
}

func newCatalog(docs []Descriptor) *Catalog {
	byID := make(map[string]Descriptor, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	return &Catalog{docs: docs, byID: byID}
}

// All returns the documents in catalog order.
func (c *Catalog) All() []Descriptor {
	return c.docs
}

// Get returns the document with the given id, reporting whether it exists.
func (c *Catalog) Get(id string) (Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Empty reports whether the catalog has no documents.
func (c *Catalog) Empty() bool {
	return len(c.docs) == 0
}
