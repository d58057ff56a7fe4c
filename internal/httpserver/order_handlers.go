package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
)

type addressRequest struct {
	Name       string `json:"name" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Phone      string `json:"phone"`
}

type createOrderRequest struct {
	Email           string          `json:"email" binding:"required,email"`
	Phone           string          `json:"phone"`
	ShippingAddress addressRequest  `json:"shippingAddress" binding:"required"`
	BillingAddress  *addressRequest `json:"billingAddress"`
	ShippingMethod  string          `json:"shippingMethod" binding:"required"`
	Notes           string          `json:"notes"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type shipOrderRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (a addressRequest) toDomain() domain.Address {
	return domain.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func createOrderHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := ordersvc.CreateInput{
			Email:           req.Email,
			Phone:           req.Phone,
			ShippingAddress: req.ShippingAddress.toDomain(),
			ShippingMethod:  req.ShippingMethod,
			Notes:           req.Notes,
		}
		if req.BillingAddress != nil {
			billing := req.BillingAddress.toDomain()
			in.BillingAddress = &billing
		}

		order, err := orders.Create(c.Request.Context(), ownerFromContext(c), in)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func listOrdersHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := orders.List(c.Request.Context(), ownerFromContext(c))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if result == nil {
			result = []domain.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": result})
	}
}

func getOrderHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.GetByNumber(c.Request.Context(), ownerFromContext(c), c.Param("orderNumber"), false)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func cancelOrderHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		order, err := orders.Cancel(c.Request.Context(), ownerFromContext(c), c.Param("orderNumber"), req.Reason)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func reorderHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome, err := orders.Reorder(c.Request.Context(), ownerFromContext(c), c.Param("orderNumber"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

func markPaidHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.MarkPaid(c.Request.Context(), c.Param("orderNumber"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func markShippedHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shipOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		order, err := orders.MarkShipped(c.Request.Context(), c.Param("orderNumber"), req.TrackingNumber)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func markDeliveredHandler(orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.MarkDelivered(c.Request.Context(), c.Param("orderNumber"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
