// Package ingest reconciles scraped vehicle batches against stored inventory.
//
// Every record is handled independently: coercion, the validity gate, the
// (owner, vin) lookup and the insert-or-update each fail only their own record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/inventory-poster/internal/describe"
	"github.com/jonathan/inventory-poster/internal/normalize"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/jonathan/inventory-poster/internal/vindecode"
	"github.com/rs/zerolog"
)

// Store is the persistent vehicle store. FindByOwnerVIN returns (nil, nil) when absent.
type Store interface {
	FindByOwnerVIN(ctx context.Context, ownerID uuid.UUID, vin string) (*types.Vehicle, error)
	InsertVehicle(ctx context.Context, v *types.Vehicle) error
	UpdateVehicle(ctx context.Context, v *types.Vehicle) error
	UpdateVehicleStatus(ctx context.Context, u types.StatusUpdate, at time.Time) error
	ListPendingVehicles(ctx context.Context, ownerID *uuid.UUID) ([]types.Vehicle, error)
}

// RecordOutcome identifies a record that was written.
type RecordOutcome struct {
	Index     int       `json:"index"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	VIN       string    `json:"vin,omitempty"`
	Title     string    `json:"title"`
}

// RecordError is a record that was not written, with a human-readable reason.
type RecordError struct {
	Index  int    `json:"index"`
	VIN    string `json:"vin,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result buckets every record of a batch into exactly one of inserted, updated or errored.
type Result struct {
	Inserted      []RecordOutcome `json:"inserted"`
	Updated       []RecordOutcome `json:"updated"`
	Errored       []RecordError   `json:"errored"`
	InsertedCount int             `json:"inserted_count"`
	UpdatedCount  int             `json:"updated_count"`
	ErrorCount    int             `json:"error_count"`
	Total         int             `json:"total"`
}

// Service implements batch upsert, the status update path and the pending query.
type Service struct {
	store     Store
	validate  *validator.Validate
	describer describe.Describer
	decoder   vindecode.Decoder
	now       func() time.Time
	log       zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithDescriber fills empty descriptions on write.
func WithDescriber(d describe.Describer) Option {
	return func(s *Service) { s.describer = d }
}

// WithDecoder attaches VIN decoding results on write.
func WithDecoder(d vindecode.Decoder) Option {
	return func(s *Service) { s.decoder = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: newValidator(),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	return v
}

// Upsert writes each payload as an insert or an update. ownerID may be nil,
// in which case matches are never looked up and inserts fail with ErrMissingOwner.
// The returned error is reserved for a cancelled context; record failures land in Errored.
func (s *Service) Upsert(ctx context.Context, payloads []Payload, ownerID *uuid.UUID) (*Result, error) {
	result := &Result{
		Inserted: []RecordOutcome{},
		Updated:  []RecordOutcome{},
		Errored:  []RecordError{},
		Total:    len(payloads),
	}

	for i, p := range payloads {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, inserted, err := s.upsertOne(ctx, p, ownerID)
		if err != nil {
			recErr := RecordError{Index: i, Reason: err.Error(), Err: err}
			if p.VIN != nil {
				recErr.VIN = strings.ToUpper(strings.TrimSpace(*p.VIN))
			}
			result.Errored = append(result.Errored, recErr)
			s.log.Warn().Int("index", i).Str("vin", recErr.VIN).Str("reason", recErr.Reason).Msg("record rejected")
			continue
		}

		outcome.Index = i
		if inserted {
			result.Inserted = append(result.Inserted, outcome)
		} else {
			result.Updated = append(result.Updated, outcome)
		}
	}

	result.InsertedCount = len(result.Inserted)
	result.UpdatedCount = len(result.Updated)
	result.ErrorCount = len(result.Errored)

	s.log.Info().
		Int("total", result.Total).
		Int("inserted", result.InsertedCount).
		Int("updated", result.UpdatedCount).
		Int("errored", result.ErrorCount).
		Msg("batch ingested")
	return result, nil
}

func (s *Service) upsertOne(ctx context.Context, p Payload, ownerID *uuid.UUID) (RecordOutcome, bool, error) {
	incoming, err := coerce(p)
	if err != nil {
		return RecordOutcome{}, false, err
	}
	incoming.Images = s.keepValidImages(incoming.Images)
	if err := s.gate(incoming); err != nil {
		return RecordOutcome{}, false, err
	}

	if incoming.VIN != nil && ownerID != nil {
		existing, err := s.store.FindByOwnerVIN(ctx, *ownerID, *incoming.VIN)
		if err != nil {
			return RecordOutcome{}, false, &StoreError{Op: "lookup", Cause: err}
		}
		if existing != nil {
			return s.update(ctx, existing, incoming)
		}
	}

	if ownerID == nil {
		return RecordOutcome{}, false, &OwnershipError{VIN: incoming.VINValue()}
	}

	now := s.now().UTC()
	owner := *ownerID
	incoming.ID = uuid.New()
	incoming.OwnerID = &owner
	incoming.CreatedAt = now
	incoming.UpdatedAt = now
	s.enrich(ctx, incoming)

	err = s.store.InsertVehicle(ctx, incoming)
	if errors.Is(err, ErrDuplicateVehicle) && incoming.VIN != nil {
		// Lost a race with a concurrent insert for the same (owner, vin).
		existing, findErr := s.store.FindByOwnerVIN(ctx, owner, *incoming.VIN)
		if findErr != nil {
			return RecordOutcome{}, false, &StoreError{Op: "lookup", Cause: findErr}
		}
		if existing != nil {
			return s.update(ctx, existing, incoming)
		}
	}
	if err != nil {
		return RecordOutcome{}, false, &StoreError{Op: "insert", Cause: err}
	}

	if incoming.VIN == nil {
		s.log.Info().Str("vehicle_id", incoming.ID.String()).Str("title", incoming.DisplayTitle()).Msg("vehicle inserted without VIN; it can never match on a later scrape")
	} else {
		s.log.Debug().Str("vehicle_id", incoming.ID.String()).Str("vin", *incoming.VIN).Msg("vehicle inserted")
	}
	return outcomeOf(incoming), true, nil
}

// update overwrites scraped fields on existing and keeps its identity and posting state.
func (s *Service) update(ctx context.Context, existing, incoming *types.Vehicle) (RecordOutcome, bool, error) {
	merged := *existing
	merged.Year = incoming.Year
	merged.Make = incoming.Make
	merged.Model = incoming.Model
	merged.Trim = incoming.Trim
	merged.VIN = incoming.VIN
	merged.Price = incoming.Price
	merged.Mileage = incoming.Mileage
	merged.ExteriorColor = incoming.ExteriorColor
	merged.InteriorColor = incoming.InteriorColor
	merged.Images = incoming.Images
	if incoming.Description != "" {
		merged.Description = incoming.Description
	}
	if incoming.Source != "" {
		merged.Source = incoming.Source
	}
	if incoming.Decoding != nil {
		merged.Decoding = incoming.Decoding
	}
	merged.UpdatedAt = s.now().UTC()
	s.enrich(ctx, &merged)

	if err := s.store.UpdateVehicle(ctx, &merged); err != nil {
		return RecordOutcome{}, false, &StoreError{Op: "update", Cause: err}
	}

	s.log.Debug().Str("vehicle_id", merged.ID.String()).Str("vin", merged.VINValue()).Msg("vehicle updated")
	return outcomeOf(&merged), false, nil
}

// enrich attaches a VIN decode and a description when collaborators are configured.
// Neither collaborator can fail the record.
func (s *Service) enrich(ctx context.Context, v *types.Vehicle) {
	if s.decoder != nil && v.VIN != nil && (v.Decoding == nil || !v.Decoding.Success) {
		decoded := s.decoder.Decode(ctx, *v.VIN)
		v.Decoding = &decoded
		if !decoded.Success {
			s.log.Warn().Str("vin", *v.VIN).Str("reason", decoded.Error).Msg("vin decode unsuccessful")
		}
	}

	if s.describer != nil && v.Description == "" {
		text, err := s.describer.Describe(ctx, v)
		if err != nil {
			s.log.Warn().Err(err).Str("vin", v.VINValue()).Msg("description generation failed")
			return
		}
		v.Description = text
	}
}

// gate is the minimum validity check applied before anything is persisted.
func (s *Service) gate(v *types.Vehicle) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &normalize.ValidationError{Message: err.Error()}
	}
	first := fieldErrs[0]
	msg := fmt.Sprintf("failed %q check", first.Tag())
	if first.Tag() == "required" {
		msg = "must not be empty"
	}
	return &normalize.ValidationError{Field: first.Field(), Message: msg}
}

func (s *Service) keepValidImages(urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if err := s.validate.Var(u, "url"); err != nil {
			s.log.Debug().Str("image", u).Msg("dropping invalid image url")
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// UpdateStatus applies a posting outcome. This is the only path that mutates posting state.
func (s *Service) UpdateStatus(ctx context.Context, u types.StatusUpdate) error {
	if u.VehicleID == uuid.Nil {
		return &normalize.ValidationError{Field: "vehicle_id", Message: "must not be empty"}
	}
	switch u.Status {
	case types.StatusPosted, types.StatusError:
	default:
		return &normalize.ValidationError{Field: "status", Message: fmt.Sprintf("unsupported status %q", u.Status)}
	}

	if err := s.store.UpdateVehicleStatus(ctx, u, s.now().UTC()); err != nil {
		if errors.Is(err, ErrVehicleNotFound) {
			return err
		}
		return &StoreError{Op: "update status", Cause: err}
	}

	s.log.Info().Str("vehicle_id", u.VehicleID.String()).Str("status", string(u.Status)).Msg("vehicle status updated")
	return nil
}

// PendingVehicles lists available, not yet posted vehicles, oldest first.
// A nil ownerID lists every owner's vehicles.
func (s *Service) PendingVehicles(ctx context.Context, ownerID *uuid.UUID) ([]types.Vehicle, error) {
	vehicles, err := s.store.ListPendingVehicles(ctx, ownerID)
	if err != nil {
		return nil, &StoreError{Op: "list pending", Cause: err}
	}
	if vehicles == nil {
		vehicles = []types.Vehicle{}
	}
	return vehicles, nil
}

func outcomeOf(v *types.Vehicle) RecordOutcome {
	return RecordOutcome{VehicleID: v.ID, VIN: v.VINValue(), Title: v.DisplayTitle()}
}
