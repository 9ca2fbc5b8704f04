package orders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/store"
)

type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(store.OrdersCollection)}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = primitive.NewObjectID()
	if order.Date.IsZero() {
		order.Date = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	_, err := r.coll.InsertOne(ctx, order)
	return err
}

// GetByID returns nil when the id is malformed or unknown.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var order domain.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AdvanceStatus moves the order to status only from a status that may
// precede it, recording method when non-empty. It reports whether the order
// changed; re-advancing to the current status is a no-op.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, id primitive.ObjectID, status domain.OrderStatus, method domain.PaymentMethod) (bool, error) {
	set := bson.M{"status": status}
	if method != "" {
		set["paymentMethod"] = method
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": status.Predecessors()},
	}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}
