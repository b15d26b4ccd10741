// Package connection lists the host's connection profiles and generation
// presets, for the settings panel's dropdowns.
package connection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile is a named set of model/endpoint connection parameters.
type Profile struct {
	ID    string `toml:"id" json:"id"`
	Name  string `toml:"name" json:"name"`
	API   string `toml:"api,omitempty" json:"api,omitempty"`
	Model string `toml:"model,omitempty" json:"model,omitempty"`
}

// Provider is the connection/preset collaborator.
type Provider interface {
	ListConnectionProfiles(ctx context.Context) ([]Profile, error)
	ListPresets(ctx context.Context) ([]string, error)
}

// Catalog is the document a File provider reads.
type Catalog struct {
	Presets  []string  `toml:"presets"`
	Profiles []Profile `toml:"profiles"`
}

// Static serves a fixed catalog.
type Static struct {
	Catalog Catalog
}

func (s Static) ListConnectionProfiles(context.Context) ([]Profile, error) {
	return slices.Clone(s.Catalog.Profiles), nil
}

func (s Static) ListPresets(context.Context) ([]string, error) {
	return slices.Clone(s.Catalog.Presets), nil
}

// File serves the catalog in a TOML file, re-read on every call so edits
// show up without a restart. A missing file is an empty catalog.
type File struct {
	path string
}

// NewFile returns a provider for the TOML file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) ListConnectionProfiles(context.Context) ([]Profile, error) {
	c, err := f.load()
	if err != nil {
		return nil, err
	}

	out := make([]Profile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *File) ListPresets(context.Context) ([]string, error) {
	c, err := f.load()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *File) load() (Catalog, error) {
	var c Catalog

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("reading connections file: %w", err)
	}

	if _, err := toml.Decode(string(data), &c); err != nil {
		return c, fmt.Errorf("parsing connections file: %w", err)
	}
	return c, nil
}
