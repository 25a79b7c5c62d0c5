package api

import (
	"net/http"

	"github.com/Domenick1991/parcelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type ShipmentHandler struct {
	service booking.BookingUseCase
}

func NewShipmentHandler(service booking.BookingUseCase) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

func (h *ShipmentHandler) Register(router *gin.RouterGroup) {
	router.GET("/:code", h.get)
	router.DELETE("/:code", h.cancel)
}

func (h *ShipmentHandler) get(c *gin.Context) {
	result, err := h.service.Lookup(c.Request.Context(), c.Param("code"), currentUser(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shipment not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ShipmentHandler) cancel(c *gin.Context) {
	ok, err := h.service.Cancel(c.Request.Context(), c.Param("code"), currentUser(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "shipment cannot be cancelled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}
