package cart

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxItemQuantity caps the quantity of a single cart line
const MaxItemQuantity = 99

// MaxLines caps the number of distinct products in a cart
const MaxLines = 100

var sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Status represents the lifecycle of a cart
type Status string

const (
	StatusActive    Status = "active"
	StatusConverted Status = "converted" // turned into an order
	StatusMerged    Status = "merged"    // folded into a user cart on login
)

// Owner identifies whose cart it is. Exactly one field is set.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

// UserOwner returns an owner for an authenticated user
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// SessionOwner returns an owner for a guest session
func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: strings.TrimSpace(sessionID)}
}

// IsGuest reports whether the owner is an anonymous session
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

// Validate checks that exactly one identifier is present and well formed
func (o Owner) Validate() error {
	if o.UserID != nil {
		if *o.UserID == uuid.Nil {
			return shared.NewDomainError("CART_OWNER_REQUIRED", "Cart owner is required")
		}
		if o.SessionID != "" {
			return shared.NewDomainError("INVALID_CART_OWNER", "Cart cannot belong to both a user and a session")
		}
		return nil
	}
	if o.SessionID == "" {
		return shared.NewDomainError("CART_OWNER_REQUIRED", "Sign in or send an X-Session-ID header to use the cart")
	}
	return ValidateSessionID(o.SessionID)
}

// String returns a stable key for logging and locking
func (o Owner) String() string {
	if o.UserID != nil {
		return "user:" + o.UserID.String()
	}
	return "session:" + o.SessionID
}

// ValidateSessionID checks the guest session identifier format
func ValidateSessionID(sessionID string) error {
	if !sessionIDRegex.MatchString(sessionID) {
		return shared.NewDomainError("INVALID_SESSION_ID", "Session ID must be 8-128 characters of letters, digits, '-' or '_'")
	}
	return nil
}

// Item is one product line of a cart
type Item struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal // price when last added, for display only
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineTotal returns quantity times unit price
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a per-user or per-session shopping cart. At most one cart per
// owner is active at a time.
type Cart struct {
	shared.BaseAggregateRoot
	Owner  Owner
	Status Status
	Items  []Item
}

// NewCart creates an empty active cart for owner
func NewCart(owner Owner) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Owner:             owner,
		Status:            StatusActive,
		Items:             make([]Item, 0),
	}, nil
}

// IsActive reports whether the cart can still be modified
func (c *Cart) IsActive() bool {
	return c.Status == StatusActive
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Item returns the line for productID
func (c *Cart) Item(productID uuid.UUID) (Item, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// QuantityOf returns the quantity of productID in the cart, 0 when absent
func (c *Cart) QuantityOf(productID uuid.UUID) int {
	item, _ := c.Item(productID)
	return item.Quantity
}

// AddItem adds quantity of a product, accumulating onto an existing line
func (c *Cart) AddItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return c.SetItemQuantity(productID, c.QuantityOf(productID)+quantity, unitPrice)
}

// SetItemQuantity sets the quantity of a line. Zero removes the line.
func (c *Cart) SetItemQuantity(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if quantity > MaxItemQuantity {
		return shared.NewDomainError("QUANTITY_LIMIT_EXCEEDED", "At most 99 units of a product per order")
	}
	if quantity == 0 {
		return c.RemoveItem(productID)
	}

	now := time.Now().UTC()
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.Items[i].UnitPrice = unitPrice
			c.Items[i].UpdatedAt = now
			c.touch()
			return nil
		}
	}

	if len(c.Items) >= MaxLines {
		return shared.NewDomainError("CART_FULL", "Cart cannot hold more products")
	}
	c.Items = append(c.Items, Item{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	})
	c.touch()
	return nil
}

// RemoveItem removes the line for productID
func (c *Cart) RemoveItem(productID uuid.UUID) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return shared.NewDomainError("CART_ITEM_NOT_FOUND", "Product is not in the cart")
}

// Clear removes every line
func (c *Cart) Clear() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Items = make([]Item, 0)
	c.touch()
	return nil
}

// ItemCount returns the total number of units
func (c *Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal returns the sum of line totals at the captured prices
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ProductIDs returns the product IDs in the cart, sorted
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// MergeFrom folds the lines of a guest cart into this cart. Quantities add
// up and are capped at MaxItemQuantity; the guest cart becomes merged.
func (c *Cart) MergeFrom(other *Cart) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if other == nil || other.ID == c.ID {
		return nil
	}
	if !other.IsActive() {
		return shared.NewDomainError("CART_NOT_ACTIVE", "Source cart is no longer active")
	}

	for _, item := range other.Items {
		quantity := c.QuantityOf(item.ProductID) + item.Quantity
		if quantity > MaxItemQuantity {
			quantity = MaxItemQuantity
		}
		if err := c.SetItemQuantity(item.ProductID, quantity, item.UnitPrice); err != nil {
			return err
		}
	}

	other.Status = StatusMerged
	other.touch()
	return nil
}

// MarkConverted closes the cart after checkout
func (c *Cart) MarkConverted() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Status = StatusConverted
	c.touch()
	return nil
}

func (c *Cart) ensureActive() error {
	if !c.IsActive() {
		return shared.NewDomainError("CART_NOT_ACTIVE", "Cart is no longer active")
	}
	return nil
}

func (c *Cart) touch() {
	c.Touch()
	c.IncrementVersion()
}
