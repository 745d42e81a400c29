// Package manifest reads and writes YAML item manifests. A manifest keeps
// the metadata of one workshop item next to its content so repeated
// uploads need no flags.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// Manifest describes one item.
type Manifest struct {
	AppID  workshop.AppID  `yaml:"app_id,omitempty"`
	ItemID workshop.ItemID `yaml:"item_id,omitempty"`
	Legacy bool            `yaml:"legacy,omitempty"`

	workshop.ContentSpec `yaml:",inline"`
}

// Parse decodes a manifest. Relative paths are resolved against baseDir.
// Unknown keys are rejected.
func Parse(r io.Reader, baseDir string) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.ContentPath = resolve(baseDir, m.ContentPath)
	m.PreviewPath = resolve(baseDir, m.PreviewPath)
	m.Tags = workshop.ParseTags(strings.Join(m.Tags, ","))
	return &m, nil
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(bytes.NewReader(data), filepath.Dir(path))
}

// Save writes m to path, replacing the file atomically. Paths are written
// relative to the manifest's directory where possible.
func (m *Manifest) Save(path string) error {
	out := *m
	dir := filepath.Dir(path)
	out.ContentPath = relative(dir, m.ContentPath)
	out.PreviewPath = relative(dir, m.PreviewPath)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Validate checks the manifest can drive an upload.
func (m *Manifest) Validate() error {
	if m.ContentPath == "" {
		return errors.New("manifest: content_path is required")
	}
	if !m.Legacy && m.ItemID == 0 {
		return errors.New("manifest: bundle uploads need an item_id, set legacy: true to create the item")
	}
	return nil
}

// Request converts the manifest into a publish request.
func (m *Manifest) Request() workshop.Request {
	spec := m.ContentSpec
	spec.Tags = append([]string(nil), m.Tags...)
	return workshop.Request{ItemID: m.ItemID, Content: spec, Legacy: m.Legacy}
}

// Overlay copies every set field of req over the manifest. Tags replace the
// manifest's tags when req carries any.
func (m *Manifest) Overlay(req workshop.Request) {
	if req.ItemID != 0 {
		m.ItemID = req.ItemID
	}
	if req.Legacy {
		m.Legacy = true
	}
	c := req.Content
	if c.ContentPath != "" {
		m.ContentPath = c.ContentPath
	}
	if c.PreviewPath != "" {
		m.PreviewPath = c.PreviewPath
	}
	if c.Title != "" {
		m.Title = c.Title
	}
	if c.Description != "" {
		m.Description = c.Description
	}
	if len(c.Tags) > 0 {
		m.Tags = append([]string(nil), c.Tags...)
	}
	if c.ChangeNotes != "" {
		m.ChangeNotes = c.ChangeNotes
	}
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

func relative(baseDir, p string) string {
	if p == "" {
		return p
	}
	rel, err := filepath.Rel(baseDir, p)
	if err != nil || !filepath.IsLocal(rel) {
		return p
	}
	return rel
}
