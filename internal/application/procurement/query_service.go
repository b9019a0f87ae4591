package procurement

import (
	"context"
	"errors"
	"strings"

	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/domain/shared"
)

// QueryService reads orders back for display
type QueryService struct {
	scope txn.Scope
}

// NewQueryService creates a new QueryService
func NewQueryService(scope txn.Scope) *QueryService {
	return &QueryService{scope: scope}
}

// GetByOrderNumber returns the order with its lines. Service lines that target
// an existing asset carry that asset's code.
func (s *QueryService) GetByOrderNumber(ctx context.Context, orderNumber string) (*OrderView, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewValidationError("order_number", "is required")
	}

	var view *OrderView
	err := s.scope.Execute(ctx, func(repos txn.Repositories) error {
		order, err := repos.Orders().FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		view = ToOrderView(order)

		for i := range view.Lines {
			line := &view.Lines[i]
			if line.RelatedAssetID == nil {
				continue
			}
			a, err := repos.Assets().FindByID(ctx, *line.RelatedAssetID)
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			line.RelatedAssetCode = a.AssetCode
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
