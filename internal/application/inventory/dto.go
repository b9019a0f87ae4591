package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/inventory"
)

// CreateStockRequest represents a request to add an item to the stock catalog
type CreateStockRequest struct {
	ItemName     string `json:"item_name" validate:"required,max=200"`
	ModelNumber  string `json:"model_number" validate:"max=100"`
	Manufacturer string `json:"manufacturer" validate:"max=100"`
	Category     string `json:"category" validate:"max=100"`
	Location     string `json:"location" validate:"max=100"`
}

// MovementRequest represents a manual receipt or dispatch of stock
type MovementRequest struct {
	ItemCode string          `json:"item_code" validate:"required,max=50"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Operator string          `json:"operator" validate:"required,max=100"`
	Remarks  string          `json:"remarks" validate:"max=1000"`
}

// ManualReceiveRequest adds stock outside of a purchase order
type ManualReceiveRequest = MovementRequest

// DispatchRequest takes stock out of the store room
type DispatchRequest = MovementRequest

// StockResponse represents a stock catalog entry
type StockResponse struct {
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	ModelNumber  string          `json:"model_number,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Category     string          `json:"category,omitempty"`
	Location     string          `json:"location,omitempty"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TransactionResponse represents one journal entry
type TransactionResponse struct {
	TransactionNumber string                    `json:"transaction_number"`
	Type              inventory.TransactionType `json:"type"`
	OrderNumber       string                    `json:"order_number,omitempty"`
	Quantity          decimal.Decimal           `json:"quantity"`
	StockDelta        decimal.Decimal           `json:"stock_delta"`
	UnitPrice         decimal.Decimal           `json:"unit_price"`
	Operator          string                    `json:"operator"`
	Remarks           string                    `json:"remarks,omitempty"`
	OccurredAt        time.Time                 `json:"occurred_at"`
}

// StockDetailResponse is a catalog entry with its journal
type StockDetailResponse struct {
	StockResponse
	Transactions []TransactionResponse `json:"transactions"`
}

// ToStockResponse converts a domain StockRecord to StockResponse
func ToStockResponse(rec *inventory.StockRecord) *StockResponse {
	return &StockResponse{
		ItemCode:     rec.ItemCode,
		ItemName:     rec.ItemName,
		ModelNumber:  rec.ModelNumber,
		Manufacturer: rec.Manufacturer,
		Category:     rec.Category,
		Location:     rec.Location,
		CurrentStock: rec.CurrentStock,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// ToTransactionResponse converts a journal entry to TransactionResponse
func ToTransactionResponse(tx inventory.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionNumber: tx.TransactionNumber,
		Type:              tx.Type,
		OrderNumber:       tx.OrderNumber,
		Quantity:          tx.Quantity,
		StockDelta:        tx.SignedQuantity(),
		UnitPrice:         tx.UnitPrice,
		Operator:          tx.Operator,
		Remarks:           tx.Remarks,
		OccurredAt:        tx.OccurredAt,
	}
}
