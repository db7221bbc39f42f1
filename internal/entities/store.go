// Package entities keeps normalized copies of remote entities (products,
// companies and per-session baskets) with explicit refresh and invalidation.
package entities

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/cache"
	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// Source fetches entities from the remote API.
type Source interface {
	Products(ctx context.Context, sess *remote.Session) ([]catalog.Product, error)
	Companies(ctx context.Context, sess *remote.Session) ([]catalog.Company, error)
	Basket(ctx context.Context, sess *remote.Session) (catalog.Basket, error)
	UpdateBasket(ctx context.Context, sess *remote.Session, update remote.BasketUpdate) (catalog.Basket, error)
}

// Options configures a Store.
type Options struct {
	CatalogTTL time.Duration
	BasketTTL  time.Duration
	Logger     zerolog.Logger
}

// Store serves entities from cache and falls back to the Source. Baskets are
// keyed by the hashed session key on the context; without one they are
// always fetched.
type Store struct {
	source     Source
	cache      *cache.JSON
	catalogTTL time.Duration
	basketTTL  time.Duration
	logger     zerolog.Logger
}

// NewStore constructs a Store. A nil backend disables caching.
func NewStore(source Source, backend cache.Backend, opts Options) *Store {
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = 5 * time.Minute
	}
	if opts.BasketTTL <= 0 {
		opts.BasketTTL = 30 * time.Second
	}
	return &Store{
		source:     source,
		cache:      cache.NewJSON(backend, opts.CatalogTTL),
		catalogTTL: opts.CatalogTTL,
		basketTTL:  opts.BasketTTL,
		logger:     opts.Logger,
	}
}

// Products returns the cached product list or fetches it.
func (s *Store) Products(ctx context.Context, sess *remote.Session) ([]catalog.Product, error) {
	var out []catalog.Product
	if s.lookup(ctx, "products", cache.KeyProducts(), &out) {
		return out, nil
	}
	return s.RefreshProducts(ctx, sess)
}

// RefreshProducts fetches the product list and replaces the cached copy.
func (s *Store) RefreshProducts(ctx context.Context, sess *remote.Session) ([]catalog.Product, error) {
	out, err := s.source.Products(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cache.KeyProducts(), out, s.catalogTTL)
	return out, nil
}

// InvalidateProducts drops the cached product list.
func (s *Store) InvalidateProducts(ctx context.Context) {
	s.drop(ctx, cache.KeyProducts())
}

// Companies returns the cached company list or fetches it.
func (s *Store) Companies(ctx context.Context, sess *remote.Session) ([]catalog.Company, error) {
	var out []catalog.Company
	if s.lookup(ctx, "companies", cache.KeyCompanies(), &out) {
		return out, nil
	}
	return s.RefreshCompanies(ctx, sess)
}

// RefreshCompanies fetches the company list and replaces the cached copy.
func (s *Store) RefreshCompanies(ctx context.Context, sess *remote.Session) ([]catalog.Company, error) {
	out, err := s.source.Companies(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cache.KeyCompanies(), out, s.catalogTTL)
	return out, nil
}

// InvalidateCompanies drops the cached company list.
func (s *Store) InvalidateCompanies(ctx context.Context) {
	s.drop(ctx, cache.KeyCompanies())
}

// Basket returns the session's basket.
func (s *Store) Basket(ctx context.Context, sess *remote.Session) (catalog.Basket, error) {
	var out catalog.Basket
	if s.lookup(ctx, "basket", basketKey(ctx), &out) {
		return out, nil
	}
	return s.RefreshBasket(ctx, sess)
}

// RefreshBasket fetches the basket and replaces the cached copy.
func (s *Store) RefreshBasket(ctx context.Context, sess *remote.Session) (catalog.Basket, error) {
	out, err := s.source.Basket(ctx, sess)
	if err != nil {
		return catalog.Basket{}, err
	}
	s.store(ctx, basketKey(ctx), out, s.basketTTL)
	return out, nil
}

// UpdateBasket patches the basket remotely and caches the returned version.
// On failure the cached copy is dropped since the server state is unknown.
func (s *Store) UpdateBasket(ctx context.Context, sess *remote.Session, update remote.BasketUpdate) (catalog.Basket, error) {
	out, err := s.source.UpdateBasket(ctx, sess, update)
	if err != nil {
		s.InvalidateBasket(ctx)
		return catalog.Basket{}, err
	}
	s.store(ctx, basketKey(ctx), out, s.basketTTL)
	return out, nil
}

// InvalidateBasket drops the session's cached basket.
func (s *Store) InvalidateBasket(ctx context.Context) {
	s.drop(ctx, basketKey(ctx))
}

// Ping checks the cache backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

func basketKey(ctx context.Context) string {
	key, _ := common.SessionKey(ctx)
	return cache.KeyBasket(key)
}

func (s *Store) lookup(ctx context.Context, entity, key string, dst any) bool {
	if key == "" {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn().Err(err).Str("entity", entity).Msg("entity cache read failed")
		obs.Count(obs.EntityCacheTotal, entity, "error")
		return false
	}
	if ok {
		obs.Count(obs.EntityCacheTotal, entity, "hit")
	} else {
		obs.Count(obs.EntityCacheTotal, entity, "miss")
	}
	return ok
}

func (s *Store) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, v, ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("entity cache write failed")
	}
}

func (s *Store) drop(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("entity cache delete failed")
	}
}
