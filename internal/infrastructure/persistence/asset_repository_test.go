package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAssetRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormAssetRepository(db.DB)
	lineID := uuid.New()

	for _, code := range []string{"AS57-000002", "AS57-000001"} {
		a, err := asset.NewDelivered(code, asset.Spec{
			Name:              "Oscilloscope",
			Manufacturer:      "Tektronix",
			ModelNumber:       "TBS1052C",
			Category:          "Test equipment",
			Supplier:          "Acme Supply",
			PurchasePrice:     decimal.RequireFromString("489.00"),
			SourceOrderNumber: "PO57-00003",
			SourceLineID:      &lineID,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, a))
	}

	t.Run("finds by code and id", func(t *testing.T) {
		a, err := repo.FindByCode(ctx, "AS57-000001")
		require.NoError(t, err)
		assert.Equal(t, asset.StatusDelivered, a.Status)
		assert.Equal(t, "Test equipment", a.Category)
		assert.Equal(t, "Acme Supply", a.Supplier)
		decimalEqual(t, "489", a.PurchasePrice)

		byID, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "AS57-000001", byID.AssetCode)
	})

	t.Run("lists units of a source line in code order", func(t *testing.T) {
		assets, err := repo.ListBySourceLine(ctx, lineID)
		require.NoError(t, err)
		require.Len(t, assets, 2)
		assert.Equal(t, "AS57-000001", assets[0].AssetCode)
		assert.Equal(t, "AS57-000002", assets[1].AssetCode)

		none, err := repo.ListBySourceLine(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update rewrites register fields only", func(t *testing.T) {
		a, err := repo.FindByCode(ctx, "AS57-000002")
		require.NoError(t, err)

		last := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		next := last.AddDate(1, 0, 0)
		location, registered := "Lab 4", asset.StatusRegistered
		require.NoError(t, a.Amend(asset.Amendment{
			Location:    &location,
			Status:      &registered,
			Calibration: &asset.Calibration{Required: true, LastDate: &last, NextDueDate: &next},
		}))
		a.PurchasePrice = decimal.NewFromInt(1)
		require.NoError(t, repo.Update(ctx, a))

		got, err := repo.FindByCode(ctx, "AS57-000002")
		require.NoError(t, err)
		assert.Equal(t, "Lab 4", got.Location)
		assert.Equal(t, asset.StatusRegistered, got.Status)
		assert.True(t, got.CalibrationRequired)
		require.NotNil(t, got.NextCalibrationDue)
		assert.True(t, next.Equal(*got.NextCalibrationDue))
		decimalEqual(t, "489", got.PurchasePrice)
		assert.Equal(t, "PO57-00003", got.SourceOrderNumber)
	})

	t.Run("update of an unknown asset", func(t *testing.T) {
		ghost, err := asset.NewDelivered("AS57-000404", asset.Spec{Name: "Ghost"})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, ghost), shared.ErrNotFound)
	})

	t.Run("duplicate code and unknown asset", func(t *testing.T) {
		dup, err := asset.NewDelivered("AS57-000001", asset.Spec{Name: "Oscilloscope"})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = repo.FindByCode(ctx, "AS57-999999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInventoryTransactionRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormInventoryTransactionRepository(db.DB)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	entries := []struct {
		number string
		typ    inventory.TransactionType
		qty    int64
		order  string
	}{
		{"S57-000001", inventory.TransactionTypeOrderRegistered, 10, "PO57-00001"},
		{"S57-000002", inventory.TransactionTypePurchaseReceive, 6, "PO57-00001"},
		{"S57-000003", inventory.TransactionTypeManualDispatch, 2, ""},
	}
	for i, e := range entries {
		tx, err := inventory.NewTransaction(e.number, e.typ, "SG57-000001", decimal.NewFromInt(e.qty), "alice")
		require.NoError(t, err)
		if e.order != "" {
			tx.WithOrder(e.order, "Acme Supply")
		}
		tx.OccurredAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(ctx, tx))
	}

	t.Run("lists an item journal oldest first", func(t *testing.T) {
		txs, err := repo.ListByItem(ctx, "SG57-000001")
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, "S57-000001", txs[0].TransactionNumber)
		assert.Equal(t, inventory.TransactionTypeManualDispatch, txs[2].Type)
		decimalEqual(t, "-2", txs[2].SignedQuantity())
	})

	t.Run("lists entries of one order", func(t *testing.T) {
		txs, err := repo.ListByOrder(ctx, "PO57-00001")
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, "Acme Supply", txs[1].Supplier)
	})

	t.Run("transaction numbers are unique", func(t *testing.T) {
		tx, err := inventory.NewTransaction("S57-000001", inventory.TransactionTypeManualReceive, "SG57-000001", decimal.NewFromInt(1), "bob")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Append(ctx, tx), shared.ErrAlreadyExists)
	})
}
