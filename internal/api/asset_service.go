package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foreverstream/internal/assets"
	"foreverstream/internal/services"
)

// AssetReader abstracts the store operations needed for API queries.
type AssetReader interface {
	List(ctx context.Context, statuses ...assets.Status) ([]*assets.Record, error)
	Stats(ctx context.Context) (assets.Stats, error)
	Get(ctx context.Context, id string) (*assets.Record, error)
}

// AssetService exposes read-only asset operations returning API DTOs.
type AssetService struct {
	store AssetReader
}

// NewAssetService constructs an AssetService around the provided reader.
func NewAssetService(store AssetReader) *AssetService {
	if store == nil {
		return nil
	}
	return &AssetService{store: store}
}

// ParseStatuses converts raw filter values into statuses. Blank values are
// skipped; unknown ones are a validation error.
func ParseStatuses(values []string) ([]assets.Status, error) {
	var out []assets.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			status, ok := assets.ParseStatus(trimmed)
			if !ok {
				return nil, fmt.Errorf("%w: unknown status %q", services.ErrValidation, trimmed)
			}
			out = append(out, status)
		}
	}
	return out, nil
}

// List returns assets filtered by status.
func (s *AssetService) List(ctx context.Context, statuses ...assets.Status) ([]Asset, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs), nil
}

// Stats returns counts keyed by status string.
func (s *AssetService) Stats(ctx context.Context) (AssetStats, error) {
	if s == nil || s.store == nil {
		return FromStats(nil), nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return AssetStats{}, err
	}
	return FromStats(stats), nil
}

// Describe fetches a single asset. A missing asset returns nil without error.
func (s *AssetService) Describe(ctx context.Context, id string) (*Asset, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	dto := FromRecord(rec)
	return &dto, nil
}
