package api

import (
	"errors"
	"net/http"

	pricingsvc "github.com/Domenick1991/parcelbooking/internal/service/pricing"
	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	service pricingsvc.CalendarUseCase
}

func NewCalendarHandler(service pricingsvc.CalendarUseCase) *CalendarHandler {
	return &CalendarHandler{service: service}
}

func (h *CalendarHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.month)
}

func (h *CalendarHandler) month(c *gin.Context) {
	month, err := pricingsvc.ParseMonth(c.Query("month"), h.service.Window().Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.Month(c.Request.Context(), month)
	if err != nil {
		if errors.Is(err, pricingsvc.ErrInvalidMonth) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
