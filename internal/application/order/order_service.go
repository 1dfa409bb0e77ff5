package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appshared "github.com/storefront/backend/internal/application/shared"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Order error codes
var (
	ErrOrderNotFound         = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	ErrCartEmpty             = shared.NewDomainError("CART_EMPTY", "Cart is empty")
	ErrProductUnavailable    = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available for purchase")
	ErrOrderNotCancellable   = shared.NewDomainError("ORDER_NOT_CANCELLABLE", "Order can no longer be cancelled")
	ErrOrderNumberExhausted  = shared.NewDomainError("ORDER_NUMBER_EXHAUSTED", "Could not allocate an order number")
	ErrCheckoutInProgress    = shared.NewDomainError("CHECKOUT_IN_PROGRESS", "A checkout with this idempotency key is in progress")
	ErrInvalidIdempotencyKey = shared.NewDomainError("INVALID_IDEMPOTENCY_KEY", "Idempotency key must be 1-128 characters")
	ErrInvoiceUnavailable    = shared.NewDomainError("INVOICE_UNAVAILABLE", "Invoice rendering is not configured")
)

const (
	maxIdempotencyKeyLength = 128
	expiredCancelReason     = "payment not received in time"
)

// OrderServiceConfig holds checkout settings
type OrderServiceConfig struct {
	FlatShippingFee        decimal.Decimal
	FreeShippingThreshold  decimal.Decimal // zero disables free shipping
	MaxOrderNumberAttempts int
	IdempotencyTTL         time.Duration
}

// DefaultOrderServiceConfig returns the default checkout settings
func DefaultOrderServiceConfig() OrderServiceConfig {
	return OrderServiceConfig{
		FlatShippingFee:        decimal.NewFromInt(5),
		FreeShippingThreshold:  decimal.NewFromInt(50),
		MaxOrderNumberAttempts: 10,
		IdempotencyTTL:         24 * time.Hour,
	}
}

// ShippingFee returns the fee charged for subtotal
func (c OrderServiceConfig) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if c.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.FlatShippingFee
}

// OrderService places orders and drives them through their lifecycle.
// Stock is decremented at checkout and restored on cancellation, each in
// the same transaction as the order change.
type OrderService struct {
	txScope     appshared.TransactionScope
	orders      order.Repository
	numbers     order.NumberGenerator
	idempotency shared.IdempotencyStore
	renderer    InvoiceRenderer
	invoices    InvoiceStore
	events      shared.EventPublisher
	config      OrderServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// OrderServiceOption configures optional collaborators
type OrderServiceOption func(*OrderService)

// WithIdempotencyStore enables Idempotency-Key handling on checkout
func WithIdempotencyStore(store shared.IdempotencyStore) OrderServiceOption {
	return func(s *OrderService) { s.idempotency = store }
}

// WithInvoices enables invoice rendering. store may be nil to render on
// every request.
func WithInvoices(renderer InvoiceRenderer, store InvoiceStore) OrderServiceOption {
	return func(s *OrderService) {
		s.renderer = renderer
		s.invoices = store
	}
}

// WithEventPublisher publishes order and stock events after commit
func WithEventPublisher(events shared.EventPublisher) OrderServiceOption {
	return func(s *OrderService) {
		if events != nil {
			s.events = events
		}
	}
}

// WithNumberGenerator overrides the order number source
func WithNumberGenerator(numbers order.NumberGenerator) OrderServiceOption {
	return func(s *OrderService) { s.numbers = numbers }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// NewOrderService creates a new OrderService
func NewOrderService(
	txScope appshared.TransactionScope,
	orders order.Repository,
	config OrderServiceConfig,
	logger *zap.Logger,
	opts ...OrderServiceOption,
) *OrderService {
	if config.MaxOrderNumberAttempts <= 0 {
		config.MaxOrderNumberAttempts = DefaultOrderServiceConfig().MaxOrderNumberAttempts
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = DefaultOrderServiceConfig().IdempotencyTTL
	}
	s := &OrderService{
		txScope: txScope,
		orders:  orders,
		numbers: order.RandomNumberGenerator{},
		events:  shared.NoopEventPublisher{},
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the user's active cart into a pending order. Repeating
// a request with the same idempotency key returns the order created first.
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "checkout")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, input.UserID.String(),
		telemetry.SpanAttrIdempotent, input.IdempotencyKey != "",
	)

	var (
		resp *OrderResponse
		err  error
	)
	telemetry.Operation(telemetry.OperationCheckout).Do(ctx, func(c context.Context) {
		resp, err = s.checkout(c, input)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderNumber, resp.OrderNumber,
		telemetry.SpanAttrAmount, resp.Total.String(),
	)
	return resp, nil
}

func (s *OrderService) checkout(ctx context.Context, input CheckoutInput) (*OrderResponse, error) {
	if input.UserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User is required")
	}
	address := input.Address.Normalize()
	if err := address.Validate(); err != nil {
		return nil, err
	}
	input.Address = address

	if input.IdempotencyKey == "" || s.idempotency == nil {
		o, err := s.placeOrder(ctx, input)
		if err != nil {
			return nil, err
		}
		resp := ToOrderResponse(o)
		return &resp, nil
	}
	return s.checkoutIdempotent(ctx, input)
}

func (s *OrderService) checkoutIdempotent(ctx context.Context, input CheckoutInput) (*OrderResponse, error) {
	if len(input.IdempotencyKey) > maxIdempotencyKeyLength {
		return nil, ErrInvalidIdempotencyKey
	}
	key := fmt.Sprintf("checkout:%s:%s", input.UserID, input.IdempotencyKey)

	if resp, ok, err := s.replay(ctx, key, input.UserID); err != nil || ok {
		return resp, err
	}

	reserved, err := s.idempotency.Reserve(ctx, key, s.config.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !reserved {
		// the first request may have completed between Result and Reserve
		if resp, ok, err := s.replay(ctx, key, input.UserID); err != nil || ok {
			return resp, err
		}
		return nil, ErrCheckoutInProgress
	}

	o, err := s.placeOrder(ctx, input)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}
	if err := s.idempotency.Complete(ctx, key, o.ID.String(), s.config.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to record idempotency result",
			zap.String("key", key),
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

func (s *OrderService) replay(ctx context.Context, key string, userID uuid.UUID) (*OrderResponse, bool, error) {
	result, ok, err := s.idempotency.Result(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	orderID, err := uuid.Parse(result)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency result %q: %w", result, err)
	}
	resp, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (s *OrderService) placeOrder(ctx context.Context, input CheckoutInput) (*order.Order, error) {
	var (
		placed   *order.Order
		products []*catalog.Product
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		c, err := repos.CartRepo().FindActiveForUpdate(ctx, cart.UserOwner(input.UserID))
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrCartEmpty
			}
			return err
		}
		if c.IsEmpty() {
			return ErrCartEmpty
		}

		locked, err := repos.ProductRepo().FindByIDsForUpdate(ctx, c.ProductIDs())
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*catalog.Product, len(locked))
		for _, p := range locked {
			byID[p.ID] = p
		}

		lines := make([]order.Line, 0, len(c.Items))
		subtotal := decimal.Zero
		for _, item := range c.Items {
			p, ok := byID[item.ProductID]
			if !ok || !p.Active {
				return ErrProductUnavailable
			}
			if item.Quantity > p.Stock {
				return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf("Only %d left of %s", p.Stock, p.Name))
			}
			if err := p.DecreaseStock(item.Quantity); err != nil {
				return err
			}
			if err := repos.ProductRepo().Update(ctx, p); err != nil {
				return err
			}
			lines = append(lines, order.Line{
				ProductID:   p.ID,
				ProductName: p.Name,
				SKU:         p.SKU,
				UnitPrice:   p.Price,
				Quantity:    item.Quantity,
			})
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		products = locked

		o, err := s.createWithNumber(ctx, repos.OrderRepo(), input, lines, s.config.ShippingFee(subtotal))
		if err != nil {
			return err
		}

		if err := c.MarkConverted(); err != nil {
			return err
		}
		if err := repos.CartRepo().Save(ctx, c); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, placed.PullDomainEvents())
	for _, p := range products {
		s.publish(ctx, p.PullDomainEvents())
	}

	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("order_number", placed.OrderNumber),
		zap.String("user_id", placed.UserID.String()),
		zap.String("total", placed.Total.StringFixed(2)))

	return placed, nil
}

// createWithNumber inserts the order under a fresh number, retrying on
// collisions. Create failures roll back to a savepoint so the surrounding
// transaction stays usable.
func (s *OrderService) createWithNumber(
	ctx context.Context,
	orders order.Repository,
	input CheckoutInput,
	lines []order.Line,
	shippingFee decimal.Decimal,
) (*order.Order, error) {
	for attempt := 1; attempt <= s.config.MaxOrderNumberAttempts; attempt++ {
		number, err := s.numbers.Next(s.now())
		if err != nil {
			return nil, err
		}
		taken, err := orders.ExistsByNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		o, err := order.NewOrder(number, input.UserID, lines, input.Address, shippingFee, input.Notes)
		if err != nil {
			return nil, err
		}
		if err := orders.Create(ctx, o); err != nil {
			if errors.Is(err, order.ErrDuplicateOrderNumber) {
				s.logger.Debug("Order number collision", zap.String("order_number", number), zap.Int("attempt", attempt))
				continue
			}
			return nil, err
		}
		return o, nil
	}
	return nil, ErrOrderNumberExhausted
}

// Get returns an order owned by userID
func (s *OrderService) Get(ctx context.Context, userID, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, ErrOrderNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetAny returns any order (admin)
func (s *OrderService) GetAny(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListMine lists the orders of userID, newest first by default
func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, filter ListFilter) (shared.Paginated[OrderResponse], error) {
	filter.UserID = &userID
	return s.List(ctx, filter)
}

// List lists orders across users (admin)
func (s *OrderService) List(ctx context.Context, filter ListFilter) (shared.Paginated[OrderResponse], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return shared.Paginated[OrderResponse]{}, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	domainFilter := filter.toDomain()
	orders, total, err := s.orders.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return shared.NewPaginated(ToOrderResponses(orders), total, domainFilter.Page, domainFilter.Limit()), nil
}

// Cancel cancels an order on behalf of its owner and restores stock
func (s *OrderService) Cancel(ctx context.Context, userID, id uuid.UUID, reason string) (*OrderResponse, error) {
	o, err := s.changeStatus(ctx, id, func(o *order.Order) error {
		if !o.IsOwnedBy(userID) {
			return ErrOrderNotFound
		}
		if !o.CanBeCancelled() {
			return ErrOrderNotCancellable
		}
		return o.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateStatus moves an order along its state machine (admin). Moving to
// cancelled restores stock.
func (s *OrderService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderResponse, error) {
	if !input.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", input.Status))
	}
	o, err := s.changeStatus(ctx, input.OrderID, func(o *order.Order) error {
		return o.TransitionTo(input.Status, input.Reason)
	})
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// CancelExpired cancels pending orders created before cutoff, restoring
// their stock. Each order is handled in its own transaction so one failure
// does not block the rest.
func (s *OrderService) CancelExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	pending, err := s.orders.FindPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, candidate := range pending {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}
		_, err := s.changeStatus(ctx, candidate.ID, func(o *order.Order) error {
			if o.Status != order.StatusPending {
				return errSkip
			}
			return o.Cancel(expiredCancelReason)
		})
		if err != nil {
			if !errors.Is(err, errSkip) {
				s.logger.Warn("Failed to cancel expired order",
					zap.String("order_id", candidate.ID.String()),
					zap.Error(err))
			}
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

var errSkip = errors.New("order skipped")

// changeStatus locks the order, applies mutate and restores stock when the
// order ends up cancelled, all in one transaction
func (s *OrderService) changeStatus(ctx context.Context, id uuid.UUID, mutate func(*order.Order) error) (*order.Order, error) {
	var (
		changed  *order.Order
		restored []*catalog.Product
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		previous := o.Status
		if err := mutate(o); err != nil {
			return err
		}
		if o.Status == order.StatusCancelled && previous != order.StatusCancelled {
			if restored, err = restoreStock(ctx, repos.ProductRepo(), o); err != nil {
				return err
			}
		}
		changed = o
		return repos.OrderRepo().Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, changed.PullDomainEvents())
	for _, p := range restored {
		s.publish(ctx, p.PullDomainEvents())
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", changed.ID.String()),
		zap.String("order_number", changed.OrderNumber),
		zap.String("status", changed.Status.String()))

	return changed, nil
}

// restoreStock returns every item's quantity to its product. Products that
// no longer exist are skipped.
func restoreStock(ctx context.Context, products catalog.ProductRepository, o *order.Order) ([]*catalog.Product, error) {
	restorations := o.StockRestorations()
	ids := make([]uuid.UUID, 0, len(restorations))
	for id := range restorations {
		ids = append(ids, id)
	}
	locked, err := products.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range locked {
		if err := p.IncreaseStock(restorations[p.ID]); err != nil {
			return nil, err
		}
		if err := products.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	return locked, nil
}

// Invoice returns the PDF invoice of an order. Customers may only fetch
// their own. Rendered documents are cached in object storage.
func (s *OrderService) Invoice(ctx context.Context, requester Requester, id uuid.UUID) (*Invoice, error) {
	if s.renderer == nil {
		return nil, ErrInvoiceUnavailable
	}
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin && !o.IsOwnedBy(requester.UserID) {
		return nil, ErrOrderNotFound
	}

	invoice := &Invoice{
		Filename:    o.OrderNumber + ".pdf",
		ContentType: "application/pdf",
	}
	key := InvoiceKey(o)

	if s.invoices != nil {
		data, err := s.invoices.Download(ctx, key)
		switch {
		case err == nil:
			invoice.Data = data
			return invoice, nil
		case !errors.Is(err, shared.ErrNotFound):
			s.logger.Warn("Failed to read cached invoice", zap.String("key", key), zap.Error(err))
		}
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "order", "render_invoice")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderNumber, o.OrderNumber,
		telemetry.SpanAttrOrderStatus, o.Status.String(),
	)

	var data []byte
	telemetry.Operation(telemetry.OperationRenderInvoice).Do(ctx, func(c context.Context) {
		data, err = s.renderer.RenderInvoice(c, o)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to render invoice %s: %w", o.OrderNumber, err)
	}
	invoice.Data = data

	if s.invoices != nil {
		if err := s.invoices.Upload(ctx, key, data, invoice.ContentType); err != nil {
			s.logger.Warn("Failed to cache invoice", zap.String("key", key), zap.Error(err))
		}
	}
	return invoice, nil
}

func (s *OrderService) find(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderService) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish events", zap.Int("count", len(events)), zap.Error(err))
	}
}
