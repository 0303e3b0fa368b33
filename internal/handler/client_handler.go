package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type ClientHandler struct {
	clients *service.ClientService
	orders  *service.OrderService
}

func NewClientHandler(clients *service.ClientService, orders *service.OrderService) *ClientHandler {
	return &ClientHandler{clients: clients, orders: orders}
}

type bulkClientRequest struct {
	ClientIDs []string `json:"client_ids"`
}

type clientOrdersRequest struct {
	Orders []service.OrderInput `json:"orders"`
}

func (h *ClientHandler) List(c *gin.Context) {
	q := service.ClientQuery{
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Page:   pageRequest(c),
	}
	if raw := c.Query("in_trash"); raw != "" {
		inTrash, err := strconv.ParseBool(raw)
		if err != nil {
			handleError(c, appErr.Invalid("in_trash must be true or false"))
			return
		}
		q.InTrash = &inTrash
	}
	page, err := h.clients.List(c.Request.Context(), getUserID(c), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req service.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	client, err := h.clients.Create(c.Request.Context(), getUserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, client)
}

func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *ClientHandler) Update(c *gin.Context) {
	var req service.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	client, err := h.clients.Update(c.Request.Context(), getUserID(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *ClientHandler) BulkDelete(c *gin.Context) {
	var req bulkClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.Invalid("client_ids must be an array"))
		return
	}
	n, err := h.clients.BulkTrash(c.Request.Context(), getUserID(c), req.ClientIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, affectedResponse{AffectedCount: n})
}

func (h *ClientHandler) CreateOrders(c *gin.Context) {
	var req clientOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	orders, err := h.orders.CreateForClient(c.Request.Context(), getUserID(c), c.Param("id"), req.Orders)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, gin.H{"orders": orders})
}
