package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

func listProductsHandler(products ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := products.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if result == nil {
			result = []domain.Product{}
		}
		c.JSON(http.StatusOK, gin.H{"products": result})
	}
}

func getProductHandler(products ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := products.GetWithVariants(c.Request.Context(), c.Param("productID"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
