package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	pricingsvc "github.com/Domenick1991/parcelbooking/internal/service/pricing"
	"github.com/Domenick1991/parcelbooking/internal/wizard"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type WizardHandler struct {
	sessions *wizard.Registry
	now      func() time.Time
}

func NewWizardHandler(sessions *wizard.Registry) *WizardHandler {
	return &WizardHandler{sessions: sessions, now: time.Now}
}

type wizardResponse struct {
	ID            string                `json:"id"`
	View          wizard.View           `json:"view"`
	Notifications []wizard.Notification `json:"notifications,omitempty"`
}

type customerTypeRequest struct {
	CustomerType domain.CustomerType `json:"customer_type" binding:"required"`
}

type detailsRequest struct {
	Package  domain.PackageDetails `json:"package"`
	Pickup   domain.Address        `json:"pickup"`
	Delivery domain.Address        `json:"delivery"`
}

type deliveryOptionRequest struct {
	Option domain.DeliveryOption `json:"option" binding:"required"`
}

type monthRequest struct {
	Month string `json:"month" binding:"required"`
}

type selectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

func (h *WizardHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.start)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.end)
	router.POST("/:id/customer-type", h.customerType)
	router.POST("/:id/details", h.details)
	router.POST("/:id/delivery-option", h.deliveryOption)
	router.POST("/:id/calendar/month", h.calendarMonth)
	router.POST("/:id/calendar/select", h.selectDate)
	router.POST("/:id/advance", h.advance)
	router.POST("/:id/payment", h.payment)
	router.POST("/:id/back", h.back)
	router.POST("/:id/submit", h.submit)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/reset", h.reset)
}

func (h *WizardHandler) start(c *gin.Context) {
	id, m := h.sessions.Start(c.Request.Context(), currentUser(c))
	c.JSON(http.StatusCreated, respond(id, m))
}

func (h *WizardHandler) get(c *gin.Context) {
	h.withMachine(c, func(*wizard.Machine) error { return nil })
}

func (h *WizardHandler) end(c *gin.Context) {
	if err := h.sessions.End(c.Param("id"), currentUser(c)); err != nil {
		writeWizardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) customerType(c *gin.Context) {
	var req customerTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withMachine(c, func(m *wizard.Machine) error {
		return m.SelectCustomerType(req.CustomerType)
	})
}

func (h *WizardHandler) details(c *gin.Context) {
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withMachine(c, func(m *wizard.Machine) error {
		return m.EnterDetails(req.Package, req.Pickup, req.Delivery)
	})
}

// deliveryOption and calendarMonth accept ?wait=true to reply only once the
// calendar has finished loading.
func (h *WizardHandler) deliveryOption(c *gin.Context) {
	var req deliveryOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withMachine(c, func(m *wizard.Machine) error {
		if err := m.ChooseDeliveryOption(req.Option); err != nil {
			return err
		}
		return h.maybeWait(c, m)
	})
}

func (h *WizardHandler) calendarMonth(c *gin.Context) {
	var req monthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	month, err := pricingsvc.ParseMonth(req.Month, h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withMachine(c, func(m *wizard.Machine) error {
		if err := m.ShowMonth(month); err != nil {
			return err
		}
		return h.maybeWait(c, m)
	})
}

func (h *WizardHandler) selectDate(c *gin.Context) {
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, h.now().Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted as YYYY-MM-DD"})
		return
	}
	h.withMachine(c, func(m *wizard.Machine) error {
		_, err := m.SelectDate(date)
		return err
	})
}

func (h *WizardHandler) advance(c *gin.Context) {
	h.withMachine(c, (*wizard.Machine).Advance)
}

func (h *WizardHandler) payment(c *gin.Context) {
	var req domain.PaymentDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withMachine(c, func(m *wizard.Machine) error {
		return m.SetPayment(req)
	})
}

func (h *WizardHandler) back(c *gin.Context) {
	h.withMachine(c, (*wizard.Machine).Back)
}

func (h *WizardHandler) submit(c *gin.Context) {
	h.withMachine(c, func(m *wizard.Machine) error {
		return m.Submit(c.Request.Context())
	})
}

func (h *WizardHandler) cancel(c *gin.Context) {
	h.withMachine(c, func(m *wizard.Machine) error {
		return m.Cancel(c.Request.Context())
	})
}

func (h *WizardHandler) reset(c *gin.Context) {
	h.withMachine(c, func(m *wizard.Machine) error {
		return m.Reset(c.Request.Context())
	})
}

func (h *WizardHandler) withMachine(c *gin.Context, action func(*wizard.Machine) error) {
	id := c.Param("id")
	m, err := h.sessions.Get(id, currentUser(c))
	if err != nil {
		writeWizardError(c, err)
		return
	}
	if err := action(m); err != nil {
		writeWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, respond(id, m))
}

func (h *WizardHandler) maybeWait(c *gin.Context, m *wizard.Machine) error {
	if c.Query("wait") != "true" {
		return nil
	}
	return m.WaitCalendar(c.Request.Context())
}

func respond(id string, m *wizard.Machine) wizardResponse {
	return wizardResponse{ID: id, View: m.Snapshot(), Notifications: m.Notifications()}
}

func writeWizardError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, wizard.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, wizard.ErrStepBlocked), errors.Is(err, wizard.ErrCancellationClosed):
		status = http.StatusConflict
	case errors.Is(err, wizard.ErrInvalidCustomerType),
		errors.Is(err, wizard.ErrInvalidOption),
		errors.Is(err, wizard.ErrIncompleteDetails),
		errors.Is(err, wizard.ErrOptionRequired),
		errors.Is(err, wizard.ErrDateRequired),
		errors.Is(err, wizard.ErrPaymentIncomplete):
		status = http.StatusUnprocessableEntity
	default:
		internalError(c, err)
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
