package measure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RamonDFerreira/leitura-agua-gas/internal/extraction"
)

// IDGenerator generates unique identifiers for measures.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// Service orchestrates meter reading operations: duplicate checking,
// extraction, image persistence, record creation, confirmation and listing.
type Service struct {
	store     Store
	images    ImageStore
	extractor extraction.Extractor
	ids       IDGenerator
	baseURL   string
}

// NewService creates a Service with the default UUID generator.
func NewService(store Store, images ImageStore, extractor extraction.Extractor, baseURL string) *Service {
	return NewServiceWithDeps(store, images, extractor, uuidGenerator{}, baseURL)
}

// NewServiceWithDeps creates a Service with a custom ID generator for testing.
func NewServiceWithDeps(store Store, images ImageStore, extractor extraction.Extractor, ids IDGenerator, baseURL string) *Service {
	return &Service{
		store:     store,
		images:    images,
		extractor: extractor,
		ids:       ids,
		baseURL:   baseURL,
	}
}

// UploadResult is the success payload of the upload operation.
type UploadResult struct {
	ImageURL     string `json:"image_url"`
	MeasureValue int    `json:"measure_value"`
	MeasureUUID  string `json:"measure_uuid"`
}

// Upload registers a new meter reading from a photo. The duplicate check runs
// before the extraction call, so a DOUBLE_REPORT performs no extraction and
// no writes.
func (s *Service) Upload(ctx context.Context, in *UploadInput) (*UploadResult, *Error) {
	from, to := monthWindow(in.MeasureDatetime)
	_, err := s.store.FindByPeriod(ctx, in.CustomerCode, in.MeasureType, from, to)
	if err == nil {
		return nil, errDoubleReport()
	}
	if !errors.Is(err, ErrNotFound) {
		slog.Error("Failed to check for duplicate measure",
			"customer_code", in.CustomerCode,
			"measure_type", in.MeasureType,
			"error", err,
		)
		return nil, errInternal()
	}

	imageData, err := extraction.EnsureJPEG(in.Image)
	if err != nil {
		slog.Error("Failed to normalize image", "customer_code", in.CustomerCode, "error", err)
		return nil, errInternal()
	}

	// The extraction call is a black box that may be slow or fail; failures
	// propagate without retry.
	value, err := s.extractor.ExtractValue(ctx, imageData)
	if err != nil {
		slog.Error("Failed to extract meter value",
			"customer_code", in.CustomerCode,
			"measure_type", in.MeasureType,
			"image_size", len(imageData),
			"error", err,
		)
		return nil, errInternal()
	}

	id := s.ids.NewID()
	filename := id + ".jpg"
	if err := s.images.Save(ctx, filename, imageData); err != nil {
		slog.Error("Failed to save image", "filename", filename, "error", err)
		return nil, errInternal()
	}

	m := &Measure{
		MeasureUUID:     id,
		CustomerCode:    in.CustomerCode,
		MeasureDatetime: in.MeasureDatetime,
		MeasureType:     in.MeasureType,
		MeasureValue:    value,
		ImageURL:        s.imageURL(filename),
		HasConfirmed:    false,
	}
	if err := s.store.Create(ctx, m); err != nil {
		// Clean up the saved image so a failed create leaves no orphaned blob.
		if delErr := s.images.Delete(ctx, filename); delErr != nil {
			slog.Warn("Failed to delete image after create failure", "filename", filename, "error", delErr)
		}
		if errors.Is(err, ErrDuplicatePeriod) {
			return nil, errDoubleReport()
		}
		slog.Error("Failed to save measure", "measure_uuid", id, "error", err)
		return nil, errInternal()
	}

	return &UploadResult{
		ImageURL:     m.ImageURL,
		MeasureValue: m.MeasureValue,
		MeasureUUID:  m.MeasureUUID,
	}, nil
}

// Confirm applies the one-time human confirmation of a reading. The confirmed
// value overwrites the extracted one unconditionally; a second confirmation
// is rejected and leaves the measure untouched.
func (s *Service) Confirm(ctx context.Context, in *ConfirmInput) *Error {
	m, err := s.store.Get(ctx, in.MeasureUUID)
	if errors.Is(err, ErrNotFound) {
		return errMeasureNotFound()
	}
	if err != nil {
		slog.Error("Failed to get measure", "measure_uuid", in.MeasureUUID, "error", err)
		return errInternal()
	}

	if m.HasConfirmed {
		return errConfirmationDuplicate()
	}

	m.HasConfirmed = true
	m.MeasureValue = in.ConfirmedValue
	if err := s.store.Update(ctx, m); err != nil {
		slog.Error("Failed to update measure", "measure_uuid", in.MeasureUUID, "error", err)
		return errInternal()
	}
	return nil
}

// ListedMeasure is the listing projection of a measure. The measure value is
// deliberately omitted.
type ListedMeasure struct {
	MeasureUUID     string      `json:"measure_uuid"`
	MeasureDatetime time.Time   `json:"measure_datetime"`
	MeasureType     MeasureType `json:"measure_type"`
	HasConfirmed    bool        `json:"has_confirmed"`
	ImageURL        string      `json:"image_url"`
}

// ListResult is the success payload of the list operation.
type ListResult struct {
	CustomerCode string          `json:"customer_code"`
	Measures     []ListedMeasure `json:"measures"`
}

// List returns a customer's readings, optionally filtered by type. The type
// filter is case-insensitive.
func (s *Service) List(ctx context.Context, customerCode, typeFilter string) (*ListResult, *Error) {
	var measureType MeasureType
	if typeFilter != "" {
		parsed, err := ParseMeasureType(typeFilter)
		if err != nil {
			return nil, errInvalidType()
		}
		measureType = parsed
	}

	measures, err := s.store.ListByCustomer(ctx, customerCode, measureType)
	if err != nil {
		slog.Error("Failed to list measures", "customer_code", customerCode, "error", err)
		return nil, errInternal()
	}
	if len(measures) == 0 {
		return nil, errMeasuresNotFound()
	}

	listed := make([]ListedMeasure, 0, len(measures))
	for _, m := range measures {
		listed = append(listed, ListedMeasure{
			MeasureUUID:     m.MeasureUUID,
			MeasureDatetime: m.MeasureDatetime,
			MeasureType:     m.MeasureType,
			HasConfirmed:    m.HasConfirmed,
			ImageURL:        m.ImageURL,
		})
	}
	return &ListResult{CustomerCode: customerCode, Measures: listed}, nil
}

// ImageFile fetches the raw bytes of a stored meter photo. A missing file is
// reported as ErrFileNotFound.
func (s *Service) ImageFile(ctx context.Context, filename string) ([]byte, error) {
	data, err := s.images.Get(ctx, filename)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Service) imageURL(filename string) string {
	return fmt.Sprintf("%s/images/%s", s.baseURL, filename)
}
