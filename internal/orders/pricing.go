package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/domain"
)

type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error)
}

// PriceItems snapshots catalog name and price for each requested line and
// returns the recomputed total. Repeated products are merged.
func PriceItems(requested []domain.CreateOrderItem, catalog map[primitive.ObjectID]*domain.Product) ([]domain.LineItem, decimal.Decimal, error) {
	if len(requested) == 0 {
		return nil, decimal.Zero, domain.ErrEmptyOrder
	}

	items := make([]domain.LineItem, 0, len(requested))
	index := make(map[primitive.ObjectID]int, len(requested))
	for _, req := range requested {
		if !domain.ValidQuantity(req.Quantity) {
			return nil, decimal.Zero, domain.ErrInvalidQuantity
		}
		id, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrProductNotFound, req.ProductID)
		}
		product, ok := catalog[id]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrProductNotFound, req.ProductID)
		}

		if i, seen := index[id]; seen {
			if !domain.ValidQuantity(items[i].Quantity + req.Quantity) {
				return nil, decimal.Zero, domain.ErrInvalidQuantity
			}
			items[i].Quantity += req.Quantity
			continue
		}
		index[id] = len(items)
		items = append(items, domain.LineItem{
			ProductID: id,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  req.Quantity,
		})
	}

	return items, domain.SumLineItems(items), nil
}

func requestedIDs(requested []domain.CreateOrderItem) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(requested))
	for _, req := range requested {
		if id, err := primitive.ObjectIDFromHex(req.ProductID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
