package coordinatorserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	inventoryhttpmapper "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/http/mapper"
	inventoryports "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

// InventoryAPI serves the inventory ledger over HTTP.
type InventoryAPI struct {
	service inventoryports.Service
}

// NewInventoryAPI creates an InventoryAPI backed by the ledger service.
func NewInventoryAPI(service inventoryports.Service) InventoryAPI {
	return InventoryAPI{service: service}
}

// Post /inventory
// Creates or overwrites the stock level of a product
func (api *InventoryAPI) UpsertInventory(c *gin.Context) {
	var payload contracts.UpdateInventoryRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadBody(c, inventoryResponder, err)
		return
	}
	record, err := api.service.Upsert(c.Request.Context(), inventoryhttpmapper.ToUpsertInput(payload))
	if err != nil {
		inventoryResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inventoryhttpmapper.FromRecord(record))
}

// Get /inventory
// Lists every stock record
func (api *InventoryAPI) ListInventory(c *gin.Context) {
	records, err := api.service.List(c.Request.Context())
	if err != nil {
		inventoryResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventoryhttpmapper.FromRecords(records))
}

// Get /inventory/:productId
// Finds the stock record of a product
func (api *InventoryAPI) GetInventory(c *gin.Context) {
	record, err := api.service.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		inventoryResponder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventoryhttpmapper.FromRecord(record))
}
