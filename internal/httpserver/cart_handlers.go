package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	cartsvc "storefront/internal/service/cart"
)

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=100"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=100"`
}

type mergeCartRequest struct {
	GuestToken string `json:"guestToken" binding:"required"`
}

func getCartHandler(carts CartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.GetOrCreate(c.Request.Context(), ownerFromContext(c))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func addCartItemHandler(carts CartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cart, err := carts.AddItem(c.Request.Context(), ownerFromContext(c), cartsvc.AddItemInput{
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func updateCartItemHandler(carts CartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cart, err := carts.UpdateItemQuantity(c.Request.Context(), ownerFromContext(c), c.Param("itemID"), *req.Quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func removeCartItemHandler(carts CartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.RemoveItem(c.Request.Context(), ownerFromContext(c), c.Param("itemID"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func clearCartHandler(carts CartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := carts.Clear(c.Request.Context(), ownerFromContext(c)); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	}
}

// mergeCartHandler folds a guest cart into the authenticated user's cart.
// Only a user can merge; the guest token comes from the request body, not
// from the owner header.
func mergeCartHandler(carts CartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := ownerFromContext(c)
		if !owner.IsUser() {
			c.JSON(http.StatusForbidden, gin.H{"error": "merging requires an authenticated user"})
			return
		}
		var req mergeCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cart, err := carts.MergeGuestCart(c.Request.Context(), req.GuestToken, owner.UserID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}
