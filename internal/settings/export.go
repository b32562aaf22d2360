package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// exportVersion identifies the layout of an exported settings file.
const exportVersion = "1"

// Export is the document written by Export and read by Import.
type Export struct {
	Version   string            `yaml:"version"`
	CreatedAt string            `yaml:"created_at"`
	Settings  map[string]string `yaml:"settings"`
}

// ImportResult summarizes what Import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Export writes every stored setting to w as YAML.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	all, err := s.All(ctx)
	if err != nil {
		return err
	}
	doc := Export{
		Version:   exportVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Settings:  make(map[string]string, len(all)),
	}
	for _, st := range all {
		doc.Settings[st.Key] = st.Value
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return enc.Close()
}

// ExportFile writes the export to path via a temporary sibling file so a
// failed write never leaves a truncated document behind.
func (s *Service) ExportFile(ctx context.Context, path string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path supplied by the operator
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if err := s.Export(ctx, f); err != nil {
		f.Close()      //nolint:errcheck,gosec
		os.Remove(tmp) //nolint:errcheck,gosec
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()      //nolint:errcheck,gosec
		os.Remove(tmp) //nolint:errcheck,gosec
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck,gosec
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck,gosec
		return fmt.Errorf("renaming temp to target: %w", err)
	}
	return nil
}

// Import reads a document produced by Export and stores its settings.
// Unknown keys are skipped and reported; an invalid value aborts the
// import before anything is written.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var doc Export
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty settings file")
		}
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	if doc.Version != exportVersion {
		return nil, fmt.Errorf("unsupported settings file version %q", doc.Version)
	}

	result := &ImportResult{}
	apply := make([]string, 0, len(doc.Settings))
	for _, key := range Keys() {
		v, ok := doc.Settings[key]
		if !ok {
			continue
		}
		if err := validators[key](strings.TrimSpace(v)); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		apply = append(apply, key)
	}
	for key := range doc.Settings {
		if _, ok := validators[key]; !ok {
			result.Skipped = append(result.Skipped, key)
		}
	}
	slices.Sort(result.Skipped)

	for _, key := range apply {
		if err := s.Set(ctx, key, doc.Settings[key]); err != nil {
			return nil, err
		}
		result.Imported++
	}
	return result, nil
}
