package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
)

type normalizedItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// FingerprintItems hashes a reserve request independent of item order and duplicate lines.
func FingerprintItems(items []domain.Item) (string, error) {
	totals := domain.Totals(items)
	normalized := make([]normalizedItem, 0, len(totals))
	for _, item := range totals {
		normalized = append(normalized, normalizedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
