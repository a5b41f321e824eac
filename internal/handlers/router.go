// Package handlers exposes the cart and order lifecycle over HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/checkout"
	"github.com/imrishuroy/go-storefront-orderflow/internal/logging"
	"github.com/imrishuroy/go-storefront-orderflow/internal/tracker"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	Checkout  *checkout.Service
	Tracker   *tracker.Tracker
	Sessions  *cart.Sessions
	JWTSecret []byte
	Logger    *zap.Logger
}

type api struct {
	checkout *checkout.Service
	tracker  *tracker.Tracker
	sessions *cart.Sessions
	validate *validatorv10.Validate
	logger   *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"Content-Length", "Location"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterRoutes(r.Group("/", RequireAuth(cfg.JWTSecret)), cfg)
	return r
}

// RegisterRoutes registers the authenticated cart and order routes on g.
func RegisterRoutes(g *gin.RouterGroup, cfg HandlerConfig) {
	h := &api{
		checkout: cfg.Checkout,
		tracker:  cfg.Tracker,
		sessions: cfg.Sessions,
		validate: validation.New(),
		logger:   logging.OrNop(cfg.Logger),
	}

	g.GET("/cart", h.getCart)
	g.POST("/cart/items", h.addItem)
	g.PATCH("/cart/items/:productId", h.updateItem)
	g.DELETE("/cart/items/:productId", h.removeItem)
	g.DELETE("/cart", h.clearCart)
	g.POST("/logout", h.logout)

	g.POST("/checkout", h.placeOrder)
	g.GET("/orders", h.listOrders)
	g.GET("/orders/:ref", h.getOrder)
	g.POST("/orders/:ref/sync", h.syncOrder)
	g.POST("/orders/:ref/cancel", h.cancelOrder)
}

// session resolves the caller's claims and cart, writing a 401 when they are missing.
func (h *api) session(c *gin.Context) (*Claims, *cart.Store, bool) {
	claims, err := claimsFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return nil, nil, false
	}
	return claims, h.sessions.Get(claims.UserID), true
}
