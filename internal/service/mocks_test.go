package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/session-cart/internal/cache"
	"github.com/fjod/go_cart/session-cart/internal/catalog"
	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/repository"
)

// mockRepository keeps carts by owner key and enforces versions the same
// way the Mongo repository does.
type mockRepository struct {
	m      sync.Mutex
	carts  map[string]*domain.Cart
	err    error
	writes int
	nextID int

	// beforeWrite and afterRead run once, outside the lock, to play the part
	// of a concurrent request.
	beforeWrite func()
	afterRead   func()
}

func newMockRepository(carts ...*domain.Cart) *mockRepository {
	r := &mockRepository{carts: map[string]*domain.Cart{}}
	for _, c := range carts {
		if c.ID == "" {
			r.nextID++
			c.ID = fmt.Sprintf("cart-%d", r.nextID)
		}
		if c.Version == 0 {
			c.Version = 1
		}
		r.carts[c.OwnerKey().String()] = c
	}
	return r
}

func (r *mockRepository) get(key domain.LookupKey) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.carts[key.String()]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *c
	cp.Items = c.CloneItems()
	return &cp, nil
}

func (r *mockRepository) read(ctx context.Context, key domain.LookupKey) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cart, err := r.get(key)

	r.m.Lock()
	hook := r.afterRead
	r.afterRead = nil
	r.m.Unlock()
	if hook != nil {
		hook()
	}
	return cart, err
}

func (r *mockRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	return r.read(ctx, domain.LookupKey{Kind: domain.LookupByUser, Value: userID})
}

func (r *mockRepository) GetBySessionToken(ctx context.Context, token string) (*domain.Cart, error) {
	return r.read(ctx, domain.LookupKey{Kind: domain.LookupBySession, Value: token})
}

func (r *mockRepository) runBeforeWrite() {
	r.m.Lock()
	hook := r.beforeWrite
	r.beforeWrite = nil
	r.m.Unlock()
	if hook != nil {
		hook()
	}
}

func (r *mockRepository) Create(_ context.Context, cart *domain.Cart) error {
	r.runBeforeWrite()

	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	key := cart.OwnerKey().String()
	if _, exists := r.carts[key]; exists {
		return fmt.Errorf("failed to create cart: %w", repository.ErrVersionConflict)
	}
	r.nextID++
	cart.ID = fmt.Sprintf("cart-%d", r.nextID)
	cart.Version = 1
	cp := *cart
	cp.Items = cart.CloneItems()
	r.carts[key] = &cp
	r.writes++
	return nil
}

func (r *mockRepository) UpdateItemsAndTotals(
	_ context.Context,
	cartID string,
	version int64,
	items []domain.LineItem,
	totals domain.PriceBreakdown) (*domain.Cart, error) {

	r.runBeforeWrite()

	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.carts {
		if c.ID != cartID {
			continue
		}
		if c.Version != version {
			return nil, repository.ErrVersionConflict
		}
		c.Items = append([]domain.LineItem(nil), items...)
		c.PriceBreakdown = totals
		c.Version++
		r.writes++
		cp := *c
		cp.Items = c.CloneItems()
		return &cp, nil
	}
	return nil, repository.ErrVersionConflict
}

func (r *mockRepository) cart(key domain.LookupKey) *domain.Cart {
	c, _ := r.get(key)
	return c
}

type mockProducts struct {
	products map[string]domain.Product
	err      error
}

func (m *mockProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

// mockCache keeps the same version floor as the Redis cache.
type mockCache struct {
	m       sync.Mutex
	carts   map[string]*domain.Cart
	floors  map[string]int64
	err     error
	gets    int
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[string]*domain.Cart{}, floors: map[string]int64{}}
}

func (c *mockCache) Get(_ context.Context, key domain.LookupKey) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	cart, ok := c.carts[key.String()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *mockCache) Set(_ context.Context, key domain.LookupKey, cart *domain.Cart) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.floors[key.String()] > cart.Version {
		return nil
	}
	c.carts[key.String()] = cart
	return nil
}

func (c *mockCache) Invalidate(_ context.Context, key domain.LookupKey, version int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.carts, key.String())
	if c.floors[key.String()] < version {
		c.floors[key.String()] = version
	}
	c.deleted = append(c.deleted, key.String())
	return c.err
}

func (c *mockCache) has(key domain.LookupKey) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.carts[key.String()]
	return ok
}

type mockNotifier struct {
	m     sync.Mutex
	paths []string
}

func (n *mockNotifier) Invalidate(_ context.Context, path string) {
	n.m.Lock()
	defer n.m.Unlock()
	n.paths = append(n.paths, path)
}

func (n *mockNotifier) got() []string {
	n.m.Lock()
	defer n.m.Unlock()
	return append([]string(nil), n.paths...)
}
