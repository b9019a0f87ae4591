package procurement

import (
	"context"
	"testing"

	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueryService_GetByOrderNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("returns header and lines in line order", func(t *testing.T) {
		f := newFixture(t, testProcurementConfig())
		req := inventoryRequest(
			itemLine("Digital multimeter", "DMM-87V", 10, "39.99"),
			itemLine("Test lead set", "TL-71", 2, "12.50"),
		)
		req.Remarks = "bench restock"
		number, err := f.registration.RegisterOrder(ctx, req)
		require.NoError(t, err)

		view, err := f.queries.GetByOrderNumber(ctx, " "+number+" ")
		require.NoError(t, err)
		assert.Equal(t, number, view.OrderNumber)
		assert.Equal(t, "Acme Supply", view.Supplier)
		assert.Equal(t, "alice", view.Operator)
		assert.Equal(t, "bench restock", view.Remarks)
		decimalEqual(t, "424.90", view.Total)
		require.Len(t, view.Lines, 2)
		assert.Equal(t, 1, view.Lines[0].LineNo)
		assert.Equal(t, 2, view.Lines[1].LineNo)
		decimalEqual(t, "25.00", view.Lines[1].Amount)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, testProcurementConfig())
		_, err := f.queries.GetByOrderNumber(ctx, "PO56-00404")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("blank order number", func(t *testing.T) {
		scope := new(MockScope)
		_, err := NewQueryService(scope).GetByOrderNumber(ctx, "  ")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		scope.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})
}
