package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
	cartsvc "storefront/internal/service/cart"
)

// respondError maps expected domain outcomes to client statuses; anything
// else is an infrastructure failure and surfaces as a 500.
func respondError(c *gin.Context, logger *log.Logger, err error) {
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficient.Error(),
			"available": insufficient.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, domain.ErrVariantUnavailable),
		errors.Is(err, domain.ErrNoAvailableVariant),
		errors.Is(err, cartsvc.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGuestSessionRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrOrderNotCancellable),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, cartrepo.ErrStaleVersion):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Printf("http: internal error method=%s path=%s error=%v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
