// Package catalog looks up vehicles in the static reference list.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/models"
)

var (
	// ErrEmptyQuery is a caller-side validation error, not a miss.
	ErrEmptyQuery = errors.New("identifier is required")
	// ErrNotFound means the catalog loaded but has no matching record.
	ErrNotFound = errors.New("no vehicle found for identifier")
	// ErrNotLoaded is returned before Load has been called.
	ErrNotLoaded = errors.New("catalog not loaded")
)

// LoadError reports that the reference list could not be obtained.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load vehicle catalog from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Catalog is the read-only reference list, loaded once.
type Catalog struct {
	source Source

	mu      sync.RWMutex
	records []models.VehicleRecord
	loadErr error
	loaded  bool
}

// New creates a catalog reading from source.
func New(source Source) *Catalog {
	return &Catalog{source: source}
}

// Load fetches and parses the reference list. A failure is remembered and
// reported by Find and Err until a later Load succeeds.
func (c *Catalog) Load(ctx context.Context) error {
	records, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	if err != nil {
		c.loadErr = err
		c.records = nil
		log.WithError(err).Error("Vehicle catalog could not be loaded")
		return err
	}
	c.loadErr = nil
	c.records = records
	log.WithFields(log.Fields{"source": c.source.Name(), "records": len(records)}).Info("Loaded vehicle catalog")
	return nil
}

func (c *Catalog) fetch(ctx context.Context) ([]models.VehicleRecord, error) {
	raw, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, &LoadError{Source: c.source.Name(), Err: err}
	}
	records, err := Parse(raw)
	if err != nil {
		return nil, &LoadError{Source: c.source.Name(), Err: err}
	}
	return records, nil
}

// Parse decodes a catalog document. Valid JSON that is not an array yields an
// empty list.
func Parse(raw []byte) ([]models.VehicleRecord, error) {
	var doc json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	trimmed := strings.TrimSpace(string(doc))
	if !strings.HasPrefix(trimmed, "[") {
		return []models.VehicleRecord{}, nil
	}
	var records []models.VehicleRecord
	if err := json.Unmarshal(doc, &records); err != nil {
		return nil, fmt.Errorf("invalid catalog entry: %w", err)
	}
	return records, nil
}

// Find returns the first record whose identifier equals query, compared the
// way fleet keys are: trimmed and case-insensitive.
func (c *Catalog) Find(query string) (models.VehicleRecord, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return models.VehicleRecord{}, ErrEmptyQuery
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loadErr != nil {
		return models.VehicleRecord{}, c.loadErr
	}
	if !c.loaded {
		return models.VehicleRecord{}, ErrNotLoaded
	}
	for _, r := range c.records {
		if r.Key() == q {
			return r, nil
		}
	}
	return models.VehicleRecord{}, ErrNotFound
}

// Len returns the number of loaded records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Err returns the last load error, if any.
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

// Loaded reports whether a load succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded && c.loadErr == nil
}
