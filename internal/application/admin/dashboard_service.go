// Package admin aggregates back-office views that span several domains.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRecentOrders = 10
	defaultTopProducts  = 5
	defaultLowStockList = 20
	maxRecentOrders     = 50
)

// DashboardStats is the admin dashboard payload
type DashboardStats struct {
	Users        UserStats           `json:"users"`
	Products     ProductStats        `json:"products"`
	Orders       OrderStats          `json:"orders"`
	Revenue      RevenueStats        `json:"revenue"`
	RecentOrders []RecentOrder       `json:"recent_orders"`
	TopProducts  []TopProduct        `json:"top_products"`
	LowStock     []LowStockProduct   `json:"low_stock"`
	Thresholds   DashboardThresholds `json:"thresholds"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// UserStats counts users by role
type UserStats struct {
	Total     int64 `json:"total"`
	Customers int64 `json:"customers"`
	Admins    int64 `json:"admins"`
}

// ProductStats counts catalog products
type ProductStats struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	LowStock   int64 `json:"low_stock"`
	OutOfStock int64 `json:"out_of_stock"`
}

// OrderStats counts orders per status
type OrderStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	Today    int64            `json:"today"`
}

// RevenueStats sums totals of paid, shipped and delivered orders
type RevenueStats struct {
	Total       decimal.Decimal `json:"total"`
	Orders      int64           `json:"orders"`
	Today       decimal.Decimal `json:"today"`
	TodayOrders int64           `json:"today_orders"`
}

// RecentOrder is a compact order row
type RecentOrder struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TopProduct is a best seller by units
type TopProduct struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Units       int64           `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// LowStockProduct is an active product running out
type LowStockProduct struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	SKU   string    `json:"sku"`
	Stock int       `json:"stock"`
}

// DashboardThresholds echoes the parameters used
type DashboardThresholds struct {
	LowStock int `json:"low_stock"`
	Recent   int `json:"recent"`
}

// DashboardService computes admin statistics. Every figure is loaded
// concurrently; the first failure cancels the rest.
type DashboardService struct {
	users    identity.UserRepository
	products catalog.ProductRepository
	orders   order.Repository
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	users identity.UserRepository,
	products catalog.ProductRepository,
	orders order.Repository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		users:    users,
		products: products,
		orders:   orders,
		logger:   logger,
		now:      time.Now,
	}
}

// Stats returns the dashboard figures. lowStockThreshold marks products at
// or below that stock; recent is the number of latest orders listed.
func (s *DashboardService) Stats(ctx context.Context, lowStockThreshold, recent int) (*DashboardStats, error) {
	if lowStockThreshold < 0 {
		lowStockThreshold = 0
	}
	if recent <= 0 {
		recent = defaultRecentOrders
	}
	if recent > maxRecentOrders {
		recent = maxRecentOrders
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &DashboardStats{
		Orders:      OrderStats{ByStatus: make(map[string]int64, len(order.AllStatuses()))},
		Thresholds:  DashboardThresholds{LowStock: lowStockThreshold, Recent: recent},
		GeneratedAt: now,
	}

	// each goroutine writes a disjoint field of stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		byRole, err := s.users.CountByRole(gctx)
		if err != nil {
			return err
		}
		stats.Users = UserStats{
			Customers: byRole[identity.RoleCustomer],
			Admins:    byRole[identity.RoleAdmin],
		}
		for _, n := range byRole {
			stats.Users.Total += n
		}
		return nil
	})

	g.Go(func() error {
		ps, err := s.products.Stats(gctx, lowStockThreshold)
		if err != nil {
			return err
		}
		stats.Products = ProductStats(ps)
		return nil
	})

	g.Go(func() error {
		byStatus, err := s.orders.CountByStatus(gctx)
		if err != nil {
			return err
		}
		for _, status := range order.AllStatuses() {
			n := byStatus[status]
			stats.Orders.ByStatus[status.String()] = n
			stats.Orders.Total += n
		}
		return nil
	})

	g.Go(func() error {
		filter := order.NewFilter()
		filter.From = &startOfDay
		filter.PageSize = 1
		_, total, err := s.orders.FindAll(gctx, filter)
		if err != nil {
			return err
		}
		stats.Orders.Today = total
		return nil
	})

	g.Go(func() error {
		total, count, err := s.orders.Revenue(gctx, time.Time{})
		if err != nil {
			return err
		}
		stats.Revenue.Total = total
		stats.Revenue.Orders = count
		return nil
	})

	var (
		todayRevenue decimal.Decimal
		todayOrders  int64
	)
	g.Go(func() error {
		var err error
		todayRevenue, todayOrders, err = s.orders.Revenue(gctx, startOfDay)
		return err
	})

	g.Go(func() error {
		filter := order.NewFilter()
		filter.PageSize = recent
		latest, _, err := s.orders.FindAll(gctx, filter)
		if err != nil {
			return err
		}
		stats.RecentOrders = make([]RecentOrder, len(latest))
		for i, o := range latest {
			stats.RecentOrders[i] = RecentOrder{
				ID:          o.ID,
				OrderNumber: o.OrderNumber,
				UserID:      o.UserID,
				Status:      o.Status.String(),
				Total:       o.Total,
				ItemCount:   o.ItemCount(),
				CreatedAt:   o.CreatedAt,
			}
		}
		return nil
	})

	g.Go(func() error {
		top, err := s.orders.TopProducts(gctx, defaultTopProducts)
		if err != nil {
			return err
		}
		stats.TopProducts = make([]TopProduct, len(top))
		for i, p := range top {
			stats.TopProducts[i] = TopProduct(p)
		}
		return nil
	})

	g.Go(func() error {
		low, err := s.products.FindLowStock(gctx, lowStockThreshold, defaultLowStockList)
		if err != nil {
			return err
		}
		stats.LowStock = make([]LowStockProduct, len(low))
		for i, p := range low {
			stats.LowStock[i] = LowStockProduct{ID: p.ID, Name: p.Name, SKU: p.SKU, Stock: p.Stock}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to compute dashboard stats", zap.Error(err))
		return nil, err
	}

	stats.Revenue.Today = todayRevenue
	stats.Revenue.TodayOrders = todayOrders
	return stats, nil
}
