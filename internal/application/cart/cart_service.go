package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appshared "github.com/storefront/backend/internal/application/shared"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Cart error codes
var (
	ErrProductNotFound    = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available for purchase")
	ErrCartItemNotFound   = shared.NewDomainError("CART_ITEM_NOT_FOUND", "Product is not in the cart")
)

// CartService manages guest and user carts. Every mutation runs in one
// transaction holding row locks on the cart and the affected product.
type CartService struct {
	txScope  appshared.TransactionScope
	carts    cart.Repository
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(
	txScope appshared.TransactionScope,
	carts cart.Repository,
	products catalog.ProductRepository,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		txScope:  txScope,
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// Get returns the active cart of owner. When none exists an empty view is
// returned and nothing is persisted.
func (s *CartService) Get(ctx context.Context, owner cart.Owner) (*CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	c, err := s.carts.FindActive(ctx, owner)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return emptyView(), nil
		}
		return nil, err
	}
	return s.view(ctx, c)
}

// AddItem adds quantity units of a product, creating the cart on first use
func (s *CartService) AddItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, quantity int) (*CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var result *cart.Cart
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		c, err := s.findOrCreate(ctx, repos.CartRepo(), owner)
		if err != nil {
			return err
		}
		product, err := lockProduct(ctx, repos.ProductRepo(), productID)
		if err != nil {
			return err
		}
		if err := checkAvailability(product, c.QuantityOf(productID)+quantity); err != nil {
			return err
		}
		if err := c.AddItem(productID, quantity, product.Price); err != nil {
			return err
		}
		result = c
		return repos.CartRepo().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item added",
		zap.String("owner", owner.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity))

	return s.view(ctx, result)
}

// UpdateItem sets the quantity of a line. Zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, owner, productID)
	}
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}

	var result *cart.Cart
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		c, err := findForUpdate(ctx, repos.CartRepo(), owner)
		if err != nil {
			return err
		}
		if _, ok := c.Item(productID); !ok {
			return ErrCartItemNotFound
		}
		product, err := lockProduct(ctx, repos.ProductRepo(), productID)
		if err != nil {
			return err
		}
		if err := checkAvailability(product, quantity); err != nil {
			return err
		}
		if err := c.SetItemQuantity(productID, quantity, product.Price); err != nil {
			return err
		}
		result = c
		return repos.CartRepo().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, result)
}

// RemoveItem removes a line
func (s *CartService) RemoveItem(ctx context.Context, owner cart.Owner, productID uuid.UUID) (*CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var result *cart.Cart
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		c, err := findForUpdate(ctx, repos.CartRepo(), owner)
		if err != nil {
			return err
		}
		if err := c.RemoveItem(productID); err != nil {
			return err
		}
		result = c
		return repos.CartRepo().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, result)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, owner cart.Owner) (*CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var result *cart.Cart
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		c, err := repos.CartRepo().FindActiveForUpdate(ctx, owner)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		result = c
		return repos.CartRepo().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return emptyView(), nil
	}
	return s.view(ctx, result)
}

// Merge folds the guest cart of sessionID into the cart of userID.
// Quantities add up, capped per line. Without a guest cart the user cart
// is returned unchanged.
func (s *CartService) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*CartView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "merge")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrUserID, userID.String())

	var (
		view *CartView
		err  error
	)
	telemetry.Operation(telemetry.OperationCartMerge).Do(ctx, func(c context.Context) {
		view, err = s.merge(c, sessionID, userID)
	})
	telemetry.RecordError(span, err)
	return view, err
}

func (s *CartService) merge(ctx context.Context, sessionID string, userID uuid.UUID) (*CartView, error) {
	guestOwner := cart.SessionOwner(sessionID)
	if err := guestOwner.Validate(); err != nil {
		return nil, err
	}
	userOwner := cart.UserOwner(userID)
	if err := userOwner.Validate(); err != nil {
		return nil, err
	}

	var (
		result *cart.Cart
		merged int
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		carts := repos.CartRepo()

		userCart, err := carts.FindActiveForUpdate(ctx, userOwner)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		guest, err := carts.FindActiveForUpdate(ctx, guestOwner)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				result = userCart
				return nil
			}
			return err
		}

		if userCart == nil {
			if userCart, err = s.findOrCreate(ctx, carts, userOwner); err != nil {
				return err
			}
		}

		merged = len(guest.Items)
		if err := userCart.MergeFrom(guest); err != nil {
			return err
		}
		if err := carts.Save(ctx, guest); err != nil {
			return err
		}
		result = userCart
		return carts.Save(ctx, userCart)
	})
	if err != nil {
		return nil, err
	}

	if merged > 0 {
		s.logger.Info("Guest cart merged",
			zap.String("user_id", userID.String()),
			zap.Int("lines", merged))
	}

	if result == nil {
		return emptyView(), nil
	}
	return s.view(ctx, result)
}

// findOrCreate returns the locked active cart of owner, creating it when
// missing. A concurrent create of the same cart is resolved by re-reading.
func (s *CartService) findOrCreate(ctx context.Context, carts cart.Repository, owner cart.Owner) (*cart.Cart, error) {
	c, err := carts.FindActiveForUpdate(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c, err = cart.NewCart(owner)
	if err != nil {
		return nil, err
	}
	if err := carts.Create(ctx, c); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return carts.FindActiveForUpdate(ctx, owner)
		}
		return nil, err
	}
	return c, nil
}

func findForUpdate(ctx context.Context, carts cart.Repository, owner cart.Owner) (*cart.Cart, error) {
	c, err := carts.FindActiveForUpdate(ctx, owner)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return c, nil
}

func lockProduct(ctx context.Context, products catalog.ProductRepository, id uuid.UUID) (*catalog.Product, error) {
	locked, err := products.FindByIDsForUpdate(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, ErrProductNotFound
	}
	return locked[0], nil
}

// checkAvailability requires an active product with stock for the whole
// resulting line quantity
func checkAvailability(product *catalog.Product, lineQuantity int) error {
	if !product.Active {
		return ErrProductUnavailable
	}
	if lineQuantity > product.Stock {
		return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf("Only %d left of %s", product.Stock, product.Name))
	}
	return nil
}

func (s *CartService) view(ctx context.Context, c *cart.Cart) (*CartView, error) {
	if c == nil {
		return emptyView(), nil
	}

	byID := make(map[uuid.UUID]*catalog.Product, len(c.Items))
	if len(c.Items) > 0 {
		products, err := s.products.FindByIDs(ctx, c.ProductIDs())
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	id := c.ID
	updated := c.UpdatedAt
	v := &CartView{
		ID:          &id,
		Items:       make([]CartItemView, 0, len(c.Items)),
		Subtotal:    decimal.Zero,
		Purchasable: len(c.Items) > 0,
		UpdatedAt:   &updated,
	}

	for _, item := range c.Items {
		line := CartItemView{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
		if p, ok := byID[item.ProductID]; ok {
			line.Name = p.Name
			line.Slug = p.Slug
			line.SKU = p.SKU
			line.ImageKey = p.ImageKey
			line.UnitPrice = p.Price
			line.Stock = p.Stock
			line.Available = p.IsPurchasable(item.Quantity)
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !line.Available {
			v.Purchasable = false
		}
		v.Subtotal = v.Subtotal.Add(line.LineTotal)
		v.ItemCount += item.Quantity
		v.Items = append(v.Items, line)
	}

	return v, nil
}

func emptyView() *CartView {
	return &CartView{
		Items:    []CartItemView{},
		Subtotal: decimal.Zero,
	}
}
