package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"catalog/crawler/internal/domain"
)

var (
	// ErrCorruptSnapshot is returned when the persisted catalog cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrSnapshotNotFound is returned when nothing has been persisted yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotStore persists the catalog tree. Save always backs up the previous
// snapshot before overwriting it.
type SnapshotStore interface {
	Load(ctx context.Context) (domain.Catalog, error)
	Backup(ctx context.Context) error
	Save(ctx context.Context, catalog domain.Catalog) error
}

func encode(catalog domain.Catalog) ([]byte, error) {
	if catalog == nil {
		catalog = domain.Catalog{}
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

func decode(data []byte, source string) (domain.Catalog, error) {
	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, source, err)
	}
	for i, m := range catalog {
		if m == nil {
			return nil, fmt.Errorf("%w: %s: null month at index %d", ErrCorruptSnapshot, source, i)
		}
	}
	return catalog, nil
}
