package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/cache"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/report"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store"
)

var ErrForbidden = errors.New("admin role required")

// FetchError reports that one of the source collections could not be read.
// It is the only error a report request can fail with.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache       cache.SnapshotCache
	SnapshotTTL time.Duration
	StoreID     string
	Logger      *logrus.Logger
}

type Service struct {
	repo        store.Repository
	aggregator  *report.Aggregator
	runner      *report.Runner
	cache       cache.SnapshotCache
	snapshotTTL time.Duration
	storeID     string
	log         *logrus.Entry
}

func New(repo store.Repository, aggregator *report.Aggregator, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopSnapshotCache{}
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = time.Minute
	}
	if opts.StoreID == "" {
		opts.StoreID = "main-store"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Service{
		repo:        repo,
		aggregator:  aggregator,
		runner:      report.NewRunner(opts.Logger),
		cache:       opts.Cache,
		snapshotTTL: opts.SnapshotTTL,
		storeID:     opts.StoreID,
		log:         opts.Logger.WithField("component", "service"),
	}
}

// Snapshot returns the raw collections, from cache when fresh. On a miss the
// three collections are fetched concurrently; the first failure cancels the
// others.
func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	key := cache.SnapshotKey(s.storeID)
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("snapshot cache read failed")
	} else if ok && cached != nil {
		return *cached, nil
	}

	var (
		sales     []domain.Sale
		products  []domain.Product
		customers []domain.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.repo.ListSales(gctx)
		if err != nil {
			return &FetchError{Collection: "sales", Err: err}
		}
		sales = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.ListProducts(gctx)
		if err != nil {
			return &FetchError{Collection: "products", Err: err}
		}
		products = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.ListCustomers(gctx)
		if err != nil {
			return &FetchError{Collection: "customers", Err: err}
		}
		customers = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	snapshot := domain.Snapshot{
		Sales:     sales,
		Products:  products,
		Customers: customers,
		FetchedAt: time.Now().UTC(),
	}
	if err := s.cache.Set(ctx, key, &snapshot, s.snapshotTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("snapshot cache write failed")
	}
	return snapshot, nil
}

// Report builds the report for kind. limit < 1 uses the configured top-N.
func (s *Service) Report(ctx context.Context, kind domain.RangeKind, limit int) (domain.Report, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}

	started := time.Now()
	rep := s.aggregator.Build(snapshot, kind, limit)
	s.log.WithFields(logrus.Fields{
		"range":    rep.Range.Kind,
		"sales":    len(snapshot.Sales),
		"orders":   rep.Metrics.TotalOrders,
		"duration": time.Since(started).String(),
	}).Debug("report built")
	return rep, nil
}

// Ranges lists every supported range with its bounds resolved against now.
func (s *Service) Ranges() []domain.RangeInfo {
	infos := make([]domain.RangeInfo, 0, len(domain.RangeKinds))
	for _, kind := range domain.RangeKinds {
		r := s.aggregator.ResolveDateRange(kind)
		infos = append(infos, domain.RangeInfo{
			Kind:      r.Kind,
			Label:     r.Label,
			StartDate: r.StartDate.Format(time.RFC3339),
			EndDate:   r.EndDate.Format(time.RFC3339Nano),
		})
	}
	return infos
}

// Refresh drops the cached snapshot so the next report refetches.
func (s *Service) Refresh(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if err := s.cache.Delete(ctx, cache.SnapshotKey(s.storeID)); err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	s.log.WithField("actor", actor.Username).Info("snapshot invalidated")
	return nil
}

// SubmitCurrent recomputes the current report in the background. A newer
// submission supersedes any computation still running.
func (s *Service) SubmitCurrent(ctx context.Context, kind domain.RangeKind) (uint64, error) {
	return s.runner.Submit(ctx, func(ctx context.Context) (domain.Report, error) {
		return s.Report(ctx, kind, 0)
	})
}

func (s *Service) Current() (domain.Report, uint64, bool) {
	return s.runner.Current()
}

func (s *Service) CurrentError() error {
	return s.runner.LastError()
}

// WaitCurrent blocks until no background computation is in flight.
func (s *Service) WaitCurrent() {
	s.runner.Wait()
}

func (s *Service) Close() {
	s.runner.Close()
}

func ParseRangeKind(raw string) domain.RangeKind {
	return report.ParseRangeKind(raw)
}
