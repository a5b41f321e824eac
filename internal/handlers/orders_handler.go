package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/checkout"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/remote"
	"github.com/imrishuroy/go-storefront-orderflow/internal/tracker"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

func view(o orders.Order) tracker.View {
	return tracker.View{Order: o, Display: tracker.Describe(o.Status)}
}

func outcomeBody(out *checkout.Outcome) gin.H {
	body := gin.H{
		"order":  view(out.Order),
		"synced": out.Synced(),
	}
	if out.SyncErr != nil {
		body["sync_error"] = out.SyncErr.Error()
		body["sync_retryable"] = remote.IsTransient(out.SyncErr)
	}
	if out.PersistErr != nil {
		body["persist_error"] = out.PersistErr.Error()
	}
	return body
}

func (h *api) placeOrder(c *gin.Context) {
	claims, st, ok := h.session(c)
	if !ok {
		return
	}
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	out, err := h.checkout.PlaceOrder(c.Request.Context(), st, checkout.Request{
		ShippingAddress: orders.ShippingAddress{
			Street:      req.ShippingAddress.Street,
			City:        req.ShippingAddress.City,
			Province:    req.ShippingAddress.Province,
			ZipCode:     req.ShippingAddress.ZipCode,
			PhoneNumber: req.ShippingAddress.PhoneNumber,
		},
		PaymentMethod: orders.PaymentMethod(req.PaymentMethod),
		Customer:      &orders.Customer{ID: claims.UserID, Name: claims.Name, Email: claims.Email},
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", out.Order.OrderRef))
	c.JSON(http.StatusCreated, outcomeBody(out))
}

func (h *api) listOrders(c *gin.Context) {
	claims, err := claimsFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	views, err := h.tracker.Refresh(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	mine := make([]tracker.View, 0, len(views))
	for _, v := range views {
		if v.OwnedBy(claims.UserID) {
			mine = append(mine, v)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":  mine,
		"count":   len(mine),
		"summary": tracker.Summary(mine),
	})
}

func (h *api) getOrder(c *gin.Context) {
	o, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view(o))
}

func (h *api) syncOrder(c *gin.Context) {
	if _, ok := h.ownedOrder(c); !ok {
		return
	}
	out, err := h.checkout.Retry(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeBody(out))
}

func (h *api) cancelOrder(c *gin.Context) {
	if _, ok := h.ownedOrder(c); !ok {
		return
	}
	o, err := h.checkout.Cancel(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(o))
}

// ownedOrder loads :ref and hides orders of other users behind a 404.
func (h *api) ownedOrder(c *gin.Context) (orders.Order, bool) {
	claims, err := claimsFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return orders.Order{}, false
	}
	o, err := h.checkout.Get(c.Request.Context(), c.Param("ref"))
	if err == nil && !o.OwnedBy(claims.UserID) {
		err = orders.ErrOrderNotFound
	}
	if err != nil {
		h.writeError(c, err)
		return orders.Order{}, false
	}
	return o, true
}

func (h *api) writeError(c *gin.Context, err error) {
	var ve *orders.ValidationError
	var pe *orders.PersistenceError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": map[string]string{ve.Field: ve.Reason},
		})
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.Is(err, orders.ErrDuplicateOrder):
		c.JSON(http.StatusConflict, gin.H{"error": "order_ref_taken", "msg": "please place the order again"})
	case errors.Is(err, orders.ErrStatusMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_status_transition"})
	case errors.Is(err, checkout.ErrNotRetryable):
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_retryable"})
	case errors.Is(err, idempotency.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": "order_already_synced"})
	case errors.Is(err, idempotency.ErrSubmissionInFlight):
		c.JSON(http.StatusAccepted, gin.H{"message": "submission already in progress"})
	case errors.As(err, &pe):
		h.logger.Error("order storage failure", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order_storage_unavailable"})
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
