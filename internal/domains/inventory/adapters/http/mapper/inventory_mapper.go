package mapper

import (
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

// ToItems converts wire items into ledger items.
func ToItems(items []contracts.Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// ToUpsertInput converts an update payload into the ledger input.
func ToUpsertInput(req contracts.UpdateInventoryRequest) ports.UpsertInput {
	return ports.UpsertInput{ProductID: req.ProductID, Quantity: req.Quantity, Price: req.Price}
}

// ToCheckInput converts a check payload into the ledger input.
func ToCheckInput(req contracts.CheckRequest) ports.CheckInput {
	return ports.CheckInput{Token: req.Token, Items: ToItems(req.Items)}
}

// ToReserveInput converts a reserve payload into the ledger input.
func ToReserveInput(req contracts.ReserveRequest) ports.ReserveInput {
	return ports.ReserveInput{Token: req.Token, Items: ToItems(req.Items)}
}

// FromRecord converts a stock record to its wire representation.
func FromRecord(record *domain.Record) contracts.InventoryRecord {
	if record == nil {
		return contracts.InventoryRecord{}
	}
	return contracts.InventoryRecord{
		ID:        record.ID,
		ProductID: record.ProductID,
		Quantity:  record.Quantity,
		Price:     record.Price,
		UpdatedAt: record.UpdatedAt,
	}
}

// FromRecords converts a list of records, never returning nil.
func FromRecords(records []*domain.Record) []contracts.InventoryRecord {
	out := make([]contracts.InventoryRecord, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out
}

// FromAvailability converts a check or reserve outcome.
func FromAvailability(result domain.Availability) contracts.Availability {
	return contracts.Availability{
		Available: result.Available,
		Message:   result.Message,
		Prices:    result.Clone().Prices,
	}
}
