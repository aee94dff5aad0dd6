package coordinatorserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	orderhttpmapper "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/http/mapper"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	ordersports "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
)

// IdempotencyKeyHeader lets clients retry POST /orders without creating a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderAPI wires HTTP transport with the order coordinator and its workflows.
type OrderAPI struct {
	service   ordersports.Service
	workflows ordersports.WorkflowOrchestrator
}

// NewOrderAPI creates an OrderAPI. A nil orchestrator creates orders through the service directly.
func NewOrderAPI(service ordersports.Service, workflows ordersports.WorkflowOrchestrator) OrderAPI {
	return OrderAPI{service: service, workflows: workflows}
}

// Post /orders
// Places an order after checking and reserving inventory
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	var payload orderhttpmapper.CreateOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadBody(c, orderResponder, err)
		return
	}
	input := orderhttpmapper.ToCreateInput(payload, strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)))
	order, err := api.createOrder(c.Request.Context(), input)
	if err != nil {
		orderResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromDomainOrder(order))
}

func (api *OrderAPI) createOrder(ctx context.Context, input ordersports.CreateOrderInput) (*domain.Order, error) {
	if api.workflows != nil {
		return api.workflows.CreateOrder(ctx, input)
	}
	return api.service.Create(ctx, input)
}

// Get /orders
// Lists orders by creation time
func (api *OrderAPI) ListOrders(c *gin.Context) {
	orders, err := api.service.List(c.Request.Context())
	if err != nil {
		orderResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrders(orders))
}

// Get /orders/:id
// Find order by ID
func (api *OrderAPI) GetOrder(c *gin.Context) {
	order, err := api.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		orderResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}

// Put /orders/:id/status
// Moves an order to another status
func (api *OrderAPI) UpdateOrderStatus(c *gin.Context) {
	var payload orderhttpmapper.UpdateStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadBody(c, orderResponder, err)
		return
	}
	order, err := api.service.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		orderResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}
