package payments

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

type PaymentRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{
		coll: db.Collection(store.PaymentsCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a payment. A second pending or completed payment for the
// same order violates the partial unique index and yields
// domain.ErrPaymentExists.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt

	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPaymentExists
		}
		return err
	}
	return nil
}

// Active lists the order's pending and completed payments.
func (r *PaymentRepository) Active(ctx context.Context, orderID primitive.ObjectID) ([]domain.Payment, error) {
	filter := bson.M{
		"order":  orderID,
		"status": bson.M{"$in": bson.A{domain.PaymentStatusPending, domain.PaymentStatusCompleted}},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	payments := []domain.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// FindForOrder returns the newest payment matching order, owner and method.
func (r *PaymentRepository) FindForOrder(ctx context.Context, orderID, userID primitive.ObjectID, method domain.PaymentMethod) (*domain.Payment, error) {
	filter := bson.M{"order": orderID, "user": userID, "paymentMethod": method}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

func (r *PaymentRepository) FindBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"sessionId": sessionID})
}

// Complete moves a pending payment to completed and reports whether it did.
func (r *PaymentRepository) Complete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.transition(ctx, id, domain.PaymentStatusPending, domain.PaymentStatusCompleted)
}

// Fail marks a pending payment as failed.
func (r *PaymentRepository) Fail(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.transition(ctx, id, domain.PaymentStatusPending, domain.PaymentStatusFailed)
}

// Reinstate completes a failed payment. It is only used for superseded card
// sessions the provider reports as paid.
func (r *PaymentRepository) Reinstate(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.transition(ctx, id, domain.PaymentStatusFailed, domain.PaymentStatusCompleted)
}

func (r *PaymentRepository) transition(ctx context.Context, id primitive.ObjectID, from, to domain.PaymentStatus) (bool, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": r.now()}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, domain.ErrPaymentExists
		}
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *PaymentRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Payment, error) {
	var payment domain.Payment
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&payment); err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}
