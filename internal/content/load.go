package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"motivator/internal/domain"
)

//go:embed assets/content.yaml
var builtin []byte

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	c, err := Parse(builtin)
	if err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return c, nil
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Builtin()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(b []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return newCatalog(f), nil
}

func (f *file) validate() error {
	f.DefaultLanguage = strings.TrimSpace(f.DefaultLanguage)
	if f.DefaultLanguage == "" {
		f.DefaultLanguage = domain.DefaultLanguage
	}
	if len(f.Items) == 0 {
		return errors.New("catalog has no items")
	}

	seen := make(map[int64]struct{}, len(f.Items))
	langs := map[string]bool{}
	for i, it := range f.Items {
		where := fmt.Sprintf("items[%d]", i)
		if it.ID <= 0 {
			return fmt.Errorf("%s: id must be > 0", where)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%s: duplicate id %d", where, it.ID)
		}
		seen[it.ID] = struct{}{}

		if strings.TrimSpace(it.Lang) == "" {
			return fmt.Errorf("%s: lang is required", where)
		}
		if strings.TrimSpace(it.Text) == "" {
			return fmt.Errorf("%s: text is required", where)
		}
		switch it.Type {
		case domain.ContentText:
		case domain.ContentImage, domain.ContentVideo, domain.ContentLink:
			if strings.TrimSpace(it.URL) == "" {
				return fmt.Errorf("%s: %s content needs a url", where, it.Type)
			}
		case "":
			f.Items[i].Type = domain.ContentText
		default:
			return fmt.Errorf("%s: unknown type %q", where, it.Type)
		}
		langs[it.Lang] = true
	}
	if !langs[f.DefaultLanguage] {
		return fmt.Errorf("no items for default language %q", f.DefaultLanguage)
	}
	if strings.TrimSpace(f.Reminders[f.DefaultLanguage]) == "" {
		return fmt.Errorf("reminders: missing text for default language %q", f.DefaultLanguage)
	}
	return nil
}
