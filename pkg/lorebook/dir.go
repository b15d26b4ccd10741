package lorebook

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

const fileExt = ".json"

// worldInfoFile is the on-disk lorebook format: an object of entries keyed
// by ID. Files may be JSON5.
type worldInfoFile struct {
	Entries map[string]worldInfoEntry `json:"entries"`
}

type worldInfoEntry struct {
	UID     any      `json:"uid"`
	Key     []string `json:"key"`
	Comment string   `json:"comment"`
	Content string   `json:"content"`
	Disable bool     `json:"disable"`
}

// Dir serves lorebooks stored as <name>.json files in a directory.
type Dir struct {
	root string
}

// NewDir returns a provider for the lorebooks in root. A missing directory
// lists as empty.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the lorebook directory.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) ListResources(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing lorebooks: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	slices.Sort(names)
	return names, nil
}

func (d *Dir) LoadResource(_ context.Context, name string) (*Resource, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid lorebook name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(d.root, name+fileExt))
	if errors.Is(err, os.ErrNotExist) {
		return nil, NotFoundError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("reading lorebook %q: %w", name, err)
	}

	return Parse(name, data)
}

// Parse decodes a lorebook document.
func Parse(name string, data []byte) (*Resource, error) {
	var doc worldInfoFile
	if err := json5.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing lorebook %q: %w", name, err)
	}

	res := &Resource{Name: name, Entries: make(map[string]Entry, len(doc.Entries))}
	for key, raw := range doc.Entries {
		id := uidString(raw.UID, key)
		res.Entries[id] = Entry{
			ID:       id,
			Label:    entryLabel(id, raw.Comment, raw.Key),
			Keys:     raw.Key,
			Content:  raw.Content,
			Disabled: raw.Disable,
		}
	}
	return res, nil
}

func uidString(uid any, fallback string) string {
	switch v := uid.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return fallback
}
