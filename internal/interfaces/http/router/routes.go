package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers mounted under the API prefix
type Handlers struct {
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Category *handler.CategoryHandler
	Cart     *handler.CartHandler
	Order    *handler.OrderHandler
	Admin    *handler.AdminHandler
}

// Guards are the access control middleware the routes are wrapped in.
// RequireUser is JWTAuth, OptionalUser is OptionalJWTAuth and RequireAdmin
// runs after RequireUser. AuthRateLimit throttles the credential endpoints
// and may be nil. PostAuth runs after identity is known on every route,
// public or not, and is where request profiling goes.
type Guards struct {
	RequireUser   gin.HandlerFunc
	OptionalUser  gin.HandlerFunc
	RequireAdmin  gin.HandlerFunc
	AuthRateLimit gin.HandlerFunc
	PostAuth      []gin.HandlerFunc
}

// Storefront builds the areas of the storefront API
func Storefront(h Handlers, g Guards) []*Area {
	return []*Area{
		authRoutes(h, g),
		catalogRoutes(h, g),
		cartRoutes(h, g),
		orderRoutes(h, g),
		adminRoutes(h, g),
	}
}

func authRoutes(h Handlers, g Guards) *Area {
	auth := NewArea("/auth")

	credentials := auth.Sub("").With(g.AuthRateLimit).With(g.PostAuth...)
	credentials.POST("/register", h.Auth.Register)
	credentials.POST("/login", h.Auth.Login)
	credentials.POST("/refresh", h.Auth.Refresh)

	session := auth.Sub("").With(g.RequireUser).With(g.PostAuth...)
	session.POST("/logout", h.Auth.Logout)
	session.POST("/logout-all", h.Auth.LogoutAll)
	session.GET("/me", h.Auth.Me)
	session.PUT("/password", h.Auth.ChangePassword)
	return auth
}

func catalogRoutes(h Handlers, g Guards) *Area {
	catalog := NewArea("/catalog").With(g.OptionalUser).With(g.PostAuth...)
	catalog.GET("/products", h.Product.List)
	catalog.GET("/products/slug/:slug", h.Product.GetBySlug)
	catalog.GET("/products/:id", h.Product.Get)
	catalog.GET("/categories", h.Category.List)
	catalog.GET("/categories/:id", h.Category.Get)
	return catalog
}

func cartRoutes(h Handlers, g Guards) *Area {
	cart := NewArea("/cart")

	shopper := cart.Sub("").With(g.OptionalUser).With(g.PostAuth...)
	shopper.GET("", h.Cart.Get)
	shopper.DELETE("", h.Cart.Clear)
	shopper.POST("/items", h.Cart.AddItem)
	shopper.PUT("/items/:product_id", h.Cart.UpdateItem)
	shopper.DELETE("/items/:product_id", h.Cart.RemoveItem)

	user := cart.Sub("").With(g.RequireUser).With(g.PostAuth...)
	user.POST("/merge", h.Cart.Merge)
	return cart
}

func orderRoutes(h Handlers, g Guards) *Area {
	orders := NewArea("/orders").With(g.RequireUser).With(g.PostAuth...)
	orders.POST("/checkout", h.Order.Checkout)
	orders.GET("", h.Order.ListMine)
	orders.GET("/:id", h.Order.Get)
	orders.GET("/:id/invoice", h.Order.Invoice)
	orders.POST("/:id/cancel", h.Order.Cancel)
	return orders
}

func adminRoutes(h Handlers, g Guards) *Area {
	admin := NewArea("/admin").With(g.RequireUser, g.RequireAdmin).With(g.PostAuth...)
	admin.GET("/dashboard", h.Admin.Dashboard)

	products := admin.Sub("/products")
	products.GET("", h.Product.AdminList)
	products.POST("", h.Product.Create)
	products.GET("/:id", h.Product.AdminGet)
	products.PUT("/:id", h.Product.Update)
	products.DELETE("/:id", h.Product.Delete)
	products.PATCH("/:id/stock", h.Product.UpdateStock)
	products.POST("/:id/activate", h.Product.Activate)
	products.POST("/:id/deactivate", h.Product.Deactivate)
	products.POST("/:id/image-upload", h.Product.CreateImageUpload)
	products.POST("/:id/image", h.Product.ConfirmImage)

	categories := admin.Sub("/categories")
	categories.GET("", h.Category.List)
	categories.POST("", h.Category.Create)
	categories.PUT("/:id", h.Category.Update)
	categories.DELETE("/:id", h.Category.Delete)

	orders := admin.Sub("/orders")
	orders.GET("", h.Order.AdminList)
	orders.GET("/:id", h.Order.AdminGet)
	orders.GET("/:id/invoice", h.Order.Invoice)
	orders.PUT("/:id/status", h.Order.UpdateStatus)

	users := admin.Sub("/users")
	users.GET("", h.Admin.ListUsers)
	users.GET("/:id", h.Admin.GetUser)
	users.PUT("/:id/status", h.Admin.SetUserStatus)
	users.PUT("/:id/role", h.Admin.SetUserRole)
	return admin
}
