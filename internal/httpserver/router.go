package httpserver

import (
	"context"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	ordersvc "storefront/internal/service/order"
)

// CartService is the cart command surface consumed by the handlers.
type CartService interface {
	GetOrCreate(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.OwnerKey, in cartsvc.AddItemInput) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner domain.OwnerKey, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) (*domain.Cart, error)
	Clear(ctx context.Context, owner domain.OwnerKey) error
	MergeGuestCart(ctx context.Context, guestToken, userID string) (*domain.Cart, error)
}

// OrderService is the order command/query surface consumed by the handlers.
type OrderService interface {
	Create(ctx context.Context, owner domain.OwnerKey, in ordersvc.CreateInput) (*domain.Order, error)
	Cancel(ctx context.Context, owner domain.OwnerKey, number, reason string) (*domain.Order, error)
	Reorder(ctx context.Context, owner domain.OwnerKey, number string) (*ordersvc.ReorderOutcome, error)
	GetByNumber(ctx context.Context, owner domain.OwnerKey, number string, admin bool) (*domain.Order, error)
	List(ctx context.Context, owner domain.OwnerKey) ([]domain.Order, error)
	MarkPaid(ctx context.Context, number string) (*domain.Order, error)
	MarkShipped(ctx context.Context, number, trackingNumber string) (*domain.Order, error)
	MarkDelivered(ctx context.Context, number string) (*domain.Order, error)
}

// GuestService issues and validates guest session tokens.
type GuestService interface {
	Issue(ctx context.Context) (string, error)
	Validate(ctx context.Context, token string) error
	TTLSeconds() int
}

// ProductReader is the read-only catalog surface.
type ProductReader interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetWithVariants(ctx context.Context, id string) (*domain.Product, error)
}

type Deps struct {
	CartSvc    CartService
	OrderSvc   OrderService
	GuestSvc   GuestService
	ProductSvc ProductReader
	AdminToken string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.POST("/guest-sessions", issueGuestSessionHandler(deps.GuestSvc))

	router.GET("/products", listProductsHandler(deps.ProductSvc))
	router.GET("/products/:productID", getProductHandler(deps.ProductSvc))

	owned := router.Group("/", ownerMiddleware(deps.GuestSvc))
	{
		owned.GET("/cart", getCartHandler(deps.CartSvc, logger))
		owned.POST("/cart/items", addCartItemHandler(deps.CartSvc, logger))
		owned.PATCH("/cart/items/:itemID", updateCartItemHandler(deps.CartSvc, logger))
		owned.DELETE("/cart/items/:itemID", removeCartItemHandler(deps.CartSvc, logger))
		owned.DELETE("/cart", clearCartHandler(deps.CartSvc, logger))
		owned.POST("/cart/merge", mergeCartHandler(deps.CartSvc, logger))

		owned.POST("/orders", createOrderHandler(deps.OrderSvc, logger))
		owned.GET("/orders", listOrdersHandler(deps.OrderSvc, logger))
		owned.GET("/orders/:orderNumber", getOrderHandler(deps.OrderSvc, logger))
		owned.POST("/orders/:orderNumber/cancel", cancelOrderHandler(deps.OrderSvc, logger))
		owned.POST("/orders/:orderNumber/reorder", reorderHandler(deps.OrderSvc, logger))
	}

	admin := router.Group("/admin", adminMiddleware(deps.AdminToken))
	{
		admin.POST("/orders/:orderNumber/paid", markPaidHandler(deps.OrderSvc, logger))
		admin.POST("/orders/:orderNumber/shipped", markShippedHandler(deps.OrderSvc, logger))
		admin.POST("/orders/:orderNumber/delivered", markDeliveredHandler(deps.OrderSvc, logger))
	}

	return router
}
