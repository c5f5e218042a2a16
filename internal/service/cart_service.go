package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/cache"
	"github.com/fjod/go_cart/session-cart/internal/catalog"
	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/identity"
	"github.com/fjod/go_cart/session-cart/internal/invalidation"
	"github.com/fjod/go_cart/session-cart/internal/metrics"
	"github.com/fjod/go_cart/session-cart/internal/pricing"
	"github.com/fjod/go_cart/session-cart/internal/repository"
	"github.com/fjod/go_cart/session-cart/internal/stock"
	"github.com/fjod/go_cart/session-cart/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxAttempts = 3
	sharedReadTimeout  = 5 * time.Second
)

// Result is what callers of AddItem and RemoveItem receive. Err keeps the
// typed error for the transport layer and is never serialised.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Created bool   `json:"created,omitempty"`
	Err     error  `json:"-"`
}

// Confirmation describes a committed mutation.
type Confirmation struct {
	Created     bool
	Updated     bool
	ProductName string
	Cart        *domain.Cart
}

type Options struct {
	Calculator *pricing.Calculator
	// MaxAttempts bounds load-mutate-write rounds lost to concurrent writers.
	MaxAttempts int
	Metrics     *metrics.CartMetrics
	Logger      *zap.Logger
}

type CartService struct {
	repo     repository.CartRepository
	products catalog.ProductReader
	cache    cache.CartCache
	notifier invalidation.Notifier

	calc        *pricing.Calculator
	maxAttempts int
	metrics     *metrics.CartMetrics
	logger      *zap.Logger

	sfg singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	products catalog.ProductReader,
	cartCache cache.CartCache,
	notifier invalidation.Notifier,
	opts Options) *CartService {

	if opts.Calculator == nil {
		opts.Calculator = pricing.NewCalculator(pricing.DefaultPolicy())
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &CartService{
		repo:        repo,
		products:    products,
		cache:       cartCache,
		notifier:    notifier,
		calc:        opts.Calculator,
		maxAttempts: opts.MaxAttempts,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

func (s *CartService) AddItem(ctx context.Context, id domain.SessionIdentity, item domain.LineItem) Result {
	started := time.Now()
	conf, err := s.addItem(ctx, id, item)
	s.metrics.Observe("add_item", ErrorKind(err), started)
	if err != nil {
		s.log(ctx).Info("add item rejected",
			zap.String("product_id", item.ProductID),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err))
		return failure(err)
	}

	verb := "added to"
	if conf.Updated {
		verb = "updated in"
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("%s %s cart", conf.ProductName, verb),
		Created: conf.Created,
	}
}

func (s *CartService) RemoveItem(ctx context.Context, id domain.SessionIdentity, productID string) Result {
	started := time.Now()
	conf, err := s.removeItem(ctx, id, productID)
	s.metrics.Observe("remove_item", ErrorKind(err), started)
	if err != nil {
		s.log(ctx).Info("remove item rejected",
			zap.String("product_id", productID),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err))
		return failure(err)
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("%s removed from cart", conf.ProductName),
	}
}

// GetCart returns nil when there is no cart and on any failure, which is
// logged rather than returned.
func (s *CartService) GetCart(ctx context.Context, id domain.SessionIdentity) *domain.Cart {
	started := time.Now()
	if id.SessionToken == "" {
		s.metrics.Observe("get_cart", ErrorKind(ErrSessionMissing), started)
		s.log(ctx).Warn("get cart without session token")
		return nil
	}

	key := identity.LookupKeyFor(id)
	v, err, _ := s.sfg.Do(key.String(), func() (interface{}, error) {
		// shared by every caller waiting on this key, so one caller
		// going away must not fail the others
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()

		cart, err := s.cache.Get(ctx, key)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log(ctx).Warn("cache get error", zap.String("key", key.String()), zap.Error(err))
		}

		cart, err = s.loadCart(ctx, id)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return (*domain.Cart)(nil), nil
		}

		if errSet := s.cache.Set(ctx, key, cart); errSet != nil {
			s.log(ctx).Warn("cache set error", zap.String("key", key.String()), zap.Error(errSet))
		}
		return cart, nil
	})
	s.metrics.Observe("get_cart", ErrorKind(err), started)

	if err != nil {
		s.log(ctx).Error("get cart failed", zap.String("key", key.String()), zap.Error(err))
		return nil
	}
	return v.(*domain.Cart)
}

func (s *CartService) addItem(ctx context.Context, id domain.SessionIdentity, item domain.LineItem) (Confirmation, error) {
	if id.SessionToken == "" {
		return Confirmation{}, ErrSessionMissing
	}
	if err := ValidateLineItem(item); err != nil {
		return Confirmation{}, err
	}

	product, err := s.getProduct(ctx, item.ProductID)
	if err != nil {
		return Confirmation{}, err
	}

	var conf Confirmation
	err = s.withRetry(ctx, func() error {
		cart, err := s.loadCart(ctx, id)
		if err != nil {
			return err
		}

		if cart == nil {
			items := []domain.LineItem{item}
			newCart := &domain.Cart{
				SessionToken:   id.SessionToken,
				UserID:         id.UserID,
				Items:          items,
				PriceBreakdown: s.calc.ComputeTotals(items),
			}
			if err := s.repo.Create(ctx, newCart); err != nil {
				return storageErr(err)
			}
			conf = Confirmation{Created: true, ProductName: product.Name, Cart: newCart}
			return nil
		}

		items := cart.CloneItems()
		updated := false
		if i := cart.FindItem(item.ProductID); i >= 0 {
			newQty := items[i].Qty + 1
			if err := stock.CheckAvailability(product.Stock, newQty); err != nil {
				return err
			}
			items[i].Qty = newQty
			updated = true
		} else {
			if err := stock.CheckAvailability(product.Stock, 1); err != nil {
				return err
			}
			items = append(items, item)
		}

		saved, err := s.repo.UpdateItemsAndTotals(ctx, cart.ID, cart.Version, items, s.calc.ComputeTotals(items))
		if err != nil {
			return storageErr(err)
		}
		conf = Confirmation{Updated: updated, ProductName: product.Name, Cart: saved}
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}

	s.afterMutation(ctx, conf.Cart, product)
	s.log(ctx).Info("cart item added",
		zap.String("cart_id", conf.Cart.ID),
		zap.String("product_id", product.ID),
		zap.Bool("created", conf.Created),
		zap.String("total_price", conf.Cart.TotalPrice))
	return conf, nil
}

func (s *CartService) removeItem(ctx context.Context, id domain.SessionIdentity, productID string) (Confirmation, error) {
	if id.SessionToken == "" {
		return Confirmation{}, ErrSessionMissing
	}

	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return Confirmation{}, err
	}

	var conf Confirmation
	err = s.withRetry(ctx, func() error {
		cart, err := s.loadCart(ctx, id)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}

		i := cart.FindItem(productID)
		if i < 0 {
			return ErrItemNotFound
		}

		items := cart.CloneItems()
		if items[i].Qty == 1 {
			items = slices.DeleteFunc(items, func(x domain.LineItem) bool {
				return x.ProductID == productID
			})
		} else {
			items[i].Qty--
		}

		saved, err := s.repo.UpdateItemsAndTotals(ctx, cart.ID, cart.Version, items, s.calc.ComputeTotals(items))
		if err != nil {
			return storageErr(err)
		}
		conf = Confirmation{Updated: true, ProductName: product.Name, Cart: saved}
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}

	s.afterMutation(ctx, conf.Cart, product)
	s.log(ctx).Info("cart item removed",
		zap.String("cart_id", conf.Cart.ID),
		zap.String("product_id", product.ID),
		zap.String("total_price", conf.Cart.TotalPrice))
	return conf, nil
}

// withRetry re-runs fn while it loses optimistic write races.
func (s *CartService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return storageErr(ctxErr)
		}

		err = fn()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		s.metrics.Conflict()
		s.log(ctx).Debug("cart write conflict, retrying", zap.Int("attempt", attempt))
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// loadCart returns (nil, nil) when the identity has no cart yet.
func (s *CartService) loadCart(ctx context.Context, id domain.SessionIdentity) (*domain.Cart, error) {
	key := identity.LookupKeyFor(id)

	var (
		cart *domain.Cart
		err  error
	)
	switch key.Kind {
	case domain.LookupByUser:
		cart, err = s.repo.GetByUserID(ctx, key.Value)
	default:
		cart, err = s.repo.GetBySessionToken(ctx, key.Value)
	}

	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return cart, nil
}

func (s *CartService) getProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return product, nil
}

// afterMutation runs once the write has committed, so it must not be cut
// short by the caller cancelling.
func (s *CartService) afterMutation(ctx context.Context, cart *domain.Cart, product *domain.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := s.cache.Invalidate(ctx, cart.OwnerKey(), cart.Version); err != nil {
		s.log(ctx).Warn("cache invalidate error", zap.String("cart_id", cart.ID), zap.Error(err))
	}
	s.notifier.Invalidate(ctx, invalidation.ProductPath(product.Slug))
}

func (s *CartService) log(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, s.logger)
}

func failure(err error) Result {
	return Result{Success: false, Message: err.Error(), Err: err}
}
