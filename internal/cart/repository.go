package cart

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

type CartRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{
		coll: db.Collection(store.CartsCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the user's cart, or nil if none has been created yet.
func (r *CartRepository) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	var cart domain.Cart
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart); err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// Save upserts the cart keyed by its owner.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = r.now()
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	update := bson.M{
		"$set":         bson.M{"items": cart.Items, "updatedAt": cart.UpdatedAt},
		"$setOnInsert": bson.M{"user": cart.UserID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved domain.Cart
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"user": cart.UserID}, update, opts).Decode(&saved); err != nil {
		return err
	}
	cart.ID = saved.ID
	return nil
}

// Clear empties the user's cart, keeping the document. It reports whether a
// cart existed.
func (r *CartRepository) Clear(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	update := bson.M{"$set": bson.M{"items": bson.A{}, "updatedAt": r.now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"user": userID}, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}
