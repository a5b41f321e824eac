package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

func cartBody(st *cart.Store) gin.H {
	return gin.H{
		"items": st.Items(),
		"count": st.Count(),
		"total": st.Total().StringFixed(2),
	}
}

func (h *api) getCart(c *gin.Context) {
	_, st, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartBody(st))
}

func (h *api) addItem(c *gin.Context) {
	_, st, ok := h.session(c)
	if !ok {
		return
	}
	var req validation.AddItemRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		// BindAndValidate already wrote a 400
		return
	}
	st.AddItem(cart.Product{ID: req.ProductID, Name: req.Name, Price: req.Price}, req.Quantity)
	c.JSON(http.StatusOK, cartBody(st))
}

func (h *api) updateItem(c *gin.Context) {
	_, st, ok := h.session(c)
	if !ok {
		return
	}
	var req validation.UpdateQuantityRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	st.UpdateQuantity(c.Param("productId"), *req.Quantity)
	c.JSON(http.StatusOK, cartBody(st))
}

func (h *api) removeItem(c *gin.Context) {
	_, st, ok := h.session(c)
	if !ok {
		return
	}
	st.RemoveItem(c.Param("productId"))
	c.JSON(http.StatusOK, cartBody(st))
}

func (h *api) clearCart(c *gin.Context) {
	_, st, ok := h.session(c)
	if !ok {
		return
	}
	st.Clear()
	c.JSON(http.StatusOK, cartBody(st))
}

func (h *api) logout(c *gin.Context) {
	claims, err := claimsFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	h.sessions.End(claims.UserID)
	c.Status(http.StatusNoContent)
}
