package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Seed is one agent of a seed file.
type Seed struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ReadSeeds decodes a JSON or YAML array of seeds; format is "json" or
// "yaml".
func ReadSeeds(r io.Reader, format string) ([]Seed, error) {
	var seeds []Seed
	switch strings.ToLower(format) {
	case "json":
		if err := json.NewDecoder(r).Decode(&seeds); err != nil {
			return nil, fmt.Errorf("failed to decode seeds: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&seeds); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode seeds: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}
	return seeds, nil
}

// ReadSeedFile reads seeds from path, picking the format by extension.
func ReadSeedFile(path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSeeds(f, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Loader feeds seeds through an Inserter, one insert per seed.
type Loader struct {
	manager  *SchemaManager
	inserter *Inserter
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewLoader returns a Loader. perSecond > 0 caps the insert rate.
func NewLoader(manager *SchemaManager, inserter *Inserter, perSecond float64, opts ...Option) *Loader {
	l := &Loader{manager: manager, inserter: inserter, logger: newOptions(opts).logger}
	if perSecond > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return l
}

// LoadResult reports a load.
type LoadResult struct {
	Created bool
	IDs     []string
}

// Load ensures the collection exists, inserts every seed and flushes the
// rebuild policy. It stops at the first failure; IDs lists what was written.
func (l *Loader) Load(ctx context.Context, seeds []Seed) (*LoadResult, error) {
	name := l.inserter.collection
	_, created, err := l.manager.EnsureCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	result := &LoadResult{Created: created}
	for i, s := range seeds {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}
		id, err := l.inserter.Insert(ctx, s.Name, s.Keywords)
		if id != "" {
			result.IDs = append(result.IDs, id)
		}
		if err != nil {
			return result, fmt.Errorf("seed %d (%s): %w", i, s.Name, err)
		}
	}
	if err := l.inserter.Flush(ctx); err != nil {
		return result, err
	}
	l.logger.Info("seeds loaded", "collection", name, "count", len(result.IDs), "created", created)
	return result, nil
}
