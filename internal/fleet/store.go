// Package fleet persists the user-curated list of tracked vehicles.
package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/db"
	"github.com/ukydev/fleet-carbon/internal/emissions"
	"github.com/ukydev/fleet-carbon/internal/events"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// Observer is notified with the fleet size after each persisted change.
type Observer func(size int)

// Store is the fleet persistence layer. The whole fleet lives in a single
// slot; every mutation rewrites the deduplicated document. Add and Save are
// serialized so identifiers stay unique with concurrent callers.
type Store struct {
	slot      db.Slot
	estimator *emissions.Estimator
	publisher events.Publisher
	observer  Observer

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithEstimator sets the estimator used to attach emissions on insert.
func WithEstimator(e *emissions.Estimator) Option {
	return func(s *Store) { s.estimator = e }
}

// WithPublisher sets where vehicle-added events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithObserver registers a fleet-size observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// NewStore creates a store over slot.
func NewStore(slot db.Slot, opts ...Option) *Store {
	s := &Store{
		slot:      slot,
		estimator: emissions.Default,
		publisher: events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted fleet. Missing, unreadable or corrupt content
// yields an empty fleet; the problem is logged and never returned.
func (s *Store) Load(ctx context.Context) []models.VehicleRecord {
	fleet, err := s.load(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read fleet slot, using empty fleet")
		return []models.VehicleRecord{}
	}
	return fleet
}

// load is Load for writers: an empty or corrupt slot still reads as an empty
// fleet, but a backend failure is returned so it is never saved over.
func (s *Store) load(ctx context.Context) ([]models.VehicleRecord, error) {
	raw, err := s.slot.Get(ctx)
	if errors.Is(err, db.ErrSlotEmpty) {
		return []models.VehicleRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet: %w", err)
	}
	return decode(raw), nil
}

func decode(raw []byte) []models.VehicleRecord {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.WithError(err).Warn("Fleet slot is not a JSON array, using empty fleet")
		return []models.VehicleRecord{}
	}
	if items == nil {
		return []models.VehicleRecord{}
	}

	fleet := make([]models.VehicleRecord, 0, len(items))
	for _, item := range items {
		var v models.VehicleRecord
		if err := json.Unmarshal(item, &v); err != nil {
			log.WithError(err).Warn("Skipping unreadable fleet entry")
			continue
		}
		fleet = append(fleet, v)
	}
	return fleet
}

// Save deduplicates snapshot and replaces the persisted fleet with it.
func (s *Store) Save(ctx context.Context, snapshot []models.VehicleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.save(ctx, snapshot)
	return err
}

func (s *Store) save(ctx context.Context, snapshot []models.VehicleRecord) ([]models.VehicleRecord, error) {
	deduped := Dedupe(snapshot)
	data, err := json.Marshal(deduped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fleet: %w", err)
	}
	if err := s.slot.Put(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save fleet: %w", err)
	}
	if s.observer != nil {
		s.observer(len(deduped))
	}
	return deduped, nil
}

// Add appends record to the fleet unless its identifier is blank or already
// present (case-insensitive). Emissions are estimated now when the record does
// not carry them and are never recomputed afterwards. The returned bool
// reports whether the fleet changed; on a no-op the existing entry is returned.
func (s *Store) Add(ctx context.Context, record models.VehicleRecord) (models.VehicleRecord, bool, error) {
	key := record.Key()
	if key == "" {
		return record, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return record, false, err
	}
	for _, existing := range current {
		if existing.Key() == key {
			return existing, false, nil
		}
	}

	added := s.estimator.Attach(record)
	saved, err := s.save(ctx, append(current, added))
	if err != nil {
		return record, false, err
	}

	ev := events.NewVehicleAdded(added.Identifier, added.Kind(), added.FuelType, *added.Emissions, len(saved))
	if err := s.publisher.PublishVehicleAdded(ctx, ev); err != nil {
		log.WithError(err).WithField("utts", added.Identifier).Warn("Failed to publish vehicle-added event")
	}

	log.WithFields(log.Fields{
		"utts":       added.Identifier,
		"type":       added.Kind(),
		"fuel":       added.FuelType,
		"emissions":  *added.Emissions,
		"fleet_size": len(saved),
	}).Info("Added vehicle to fleet")

	return added, true, nil
}

// Dedupe keeps the first record per case-insensitive identifier, preserving
// order. Records with a blank identifier are dropped.
func Dedupe(records []models.VehicleRecord) []models.VehicleRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.VehicleRecord, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
