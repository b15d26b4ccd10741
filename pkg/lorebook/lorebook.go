// Package lorebook reads the host's knowledge bases: named collections of
// entries the extension consults for its character list.
package lorebook

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Entry is one lorebook entry.
type Entry struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Keys     []string `json:"keys,omitempty"`
	Content  string   `json:"content"`
	Disabled bool     `json:"disabled,omitempty"`
}

// Resource is a loaded lorebook.
type Resource struct {
	Name    string           `json:"name"`
	Entries map[string]Entry `json:"entries"`
}

// Provider is the knowledge-base collaborator.
type Provider interface {
	// ListResources returns the names of available lorebooks, sorted.
	ListResources(ctx context.Context) ([]string, error)

	// LoadResource loads a lorebook by name. A missing lorebook is a
	// NotFoundError.
	LoadResource(ctx context.Context, name string) (*Resource, error)
}

// NotFoundError is returned when a lorebook or entry does not exist.
type NotFoundError struct {
	Name  string
	Entry string
}

func (e NotFoundError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("lorebook %q has no entry %q", e.Name, e.Entry)
	}
	return fmt.Sprintf("lorebook %q not found", e.Name)
}

// SortedEntries returns the entries ordered by ID, numerically where the IDs
// are numbers.
func (r *Resource) SortedEntries() []Entry {
	out := make([]Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e)
	}

	slices.SortFunc(out, func(a, b Entry) int {
		ai, aerr := strconv.Atoi(a.ID)
		bi, berr := strconv.Atoi(b.ID)
		if aerr == nil && berr == nil {
			return ai - bi
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Entry returns the entry with the given ID.
func (r *Resource) Entry(id string) (Entry, error) {
	e, ok := r.Entries[id]
	if !ok {
		return Entry{}, NotFoundError{Name: r.Name, Entry: id}
	}
	return e, nil
}

// ParseCharacterList reads one character name per line from an entry's
// content. Blank lines are skipped and list bullets ("-" or "*") stripped.
// At most limit names are returned; a non-positive limit means no limit.
func ParseCharacterList(content string, limit int) []string {
	var names []string
	for line := range strings.SplitSeq(content, "\n") {
		name := strings.TrimSpace(line)
		name = strings.TrimSpace(strings.TrimLeft(name, "-*"))
		if name == "" {
			continue
		}

		names = append(names, name)
		if limit > 0 && len(names) == limit {
			break
		}
	}
	return names
}

// entryLabel picks a display label: the comment, else the first key, else
// the ID.
func entryLabel(id, comment string, keys []string) string {
	if c := strings.TrimSpace(comment); c != "" {
		return c
	}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return "Entry " + id
}
