package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrdersRequest struct {
	Orders []service.OrderInput `json:"orders"`
}

type bulkOrderRequest struct {
	OrderIDs []string `json:"order_ids"`
}

func (h *OrderHandler) List(c *gin.Context) {
	page, err := h.orders.List(c.Request.Context(), getUserID(c), service.OrderQuery{
		Status:   c.Query("status"),
		ClientID: c.Query("client_id"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort_by"),
		Page:     pageRequest(c),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	orders, err := h.orders.Create(c.Request.Context(), getUserID(c), req.Orders)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, gin.H{"orders": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	var req service.OrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	order, err := h.orders.Update(c.Request.Context(), getUserID(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, order)
}

func (h *OrderHandler) MarkDone(c *gin.Context) {
	order, err := h.orders.MarkDone(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, order)
}

func (h *OrderHandler) MarkPending(c *gin.Context) {
	order, err := h.orders.MarkPending(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *OrderHandler) BulkDelete(c *gin.Context) {
	var req bulkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.Invalid("order_ids must be an array"))
		return
	}
	n, err := h.orders.BulkDelete(c.Request.Context(), getUserID(c), req.OrderIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, affectedResponse{AffectedCount: n})
}
