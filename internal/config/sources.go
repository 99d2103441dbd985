package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed sources.toml
var defaultSources string

// Category is one allow-listed value of a dataset's --category flag.
type Category struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// Series is a monetary time series fetched one call at a time.
type Series struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
}

// Source describes one upstream provider.
type Source struct {
	URL              string              `toml:"url"`
	PaceSeconds      int                 `toml:"pace_seconds"`
	CallDelaySeconds int                 `toml:"call_delay_seconds"`
	Categories       map[string]Category `toml:"categories"`
	Series           []Series            `toml:"series"`
}

// Catalog maps dataset names to their upstream sources.
type Catalog map[string]Source

// LoadCatalog decodes the embedded source catalog, or the file at path when set.
func LoadCatalog(path string) (Catalog, error) {
	data := defaultSources
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sources file: %w", err)
		}
		data = string(b)
	}
	var cat Catalog
	if _, err := toml.Decode(data, &cat); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return cat, nil
}

// Source returns the named dataset's source or an error if it is not configured.
func (c Catalog) Source(dataset string) (Source, error) {
	s, ok := c[dataset]
	if !ok {
		return Source{}, fmt.Errorf("no source configured for dataset %q", dataset)
	}
	return s, nil
}

// Category resolves key against the allow-list.
func (s Source) Category(key string) (Category, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Category{}, fmt.Errorf("category is required (one of: %s)", strings.Join(s.CategoryKeys(), ", "))
	}
	cat, ok := s.Categories[key]
	if !ok {
		return Category{}, fmt.Errorf("unknown category %q (one of: %s)", key, strings.Join(s.CategoryKeys(), ", "))
	}
	return cat, nil
}

// CategoryKeys lists the allow-listed keys in sorted order.
func (s Source) CategoryKeys() []string {
	keys := make([]string, 0, len(s.Categories))
	for k := range s.Categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Source) Pace() time.Duration {
	return time.Duration(s.PaceSeconds) * time.Second
}

func (s Source) CallDelay() time.Duration {
	return time.Duration(s.CallDelaySeconds) * time.Second
}
