package cache

import (
	"context"
	"time"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

// SnapshotCache stores raw fetched collections keyed by store id. Derived
// reports are never cached.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*domain.Snapshot, bool, error)
	Set(ctx context.Context, key string, value *domain.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context, _ string) (*domain.Snapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ string, _ *domain.Snapshot, _ time.Duration) error {
	return nil
}

func (NoopSnapshotCache) Delete(_ context.Context, _ string) error {
	return nil
}

func SnapshotKey(storeID string) string {
	return "reports:snapshot:" + storeID
}
