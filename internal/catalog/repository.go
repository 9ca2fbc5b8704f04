package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/store"
)

const (
	featuredLimit     = 4
	ecoPicksLimit     = 4
	alternativesLimit = 6
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(store.ProductsCollection)}
}

func (r *ProductRepository) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	return r.find(ctx, f.BSON(), options.Find().SetSort(newestFirst))
}

func (r *ProductRepository) Featured(ctx context.Context) ([]domain.Product, error) {
	return r.find(ctx, bson.M{"featured": true}, options.Find().SetLimit(featuredLimit))
}

func (r *ProductRepository) EcoAlternatives(ctx context.Context) ([]domain.Product, error) {
	filter := bson.M{"ecoRating": bson.M{"$in": domain.EcoFriendlyRatings}}
	return r.find(ctx, filter, options.Find().SetLimit(ecoPicksLimit))
}

// Alternatives lists better-rated products in the same category as p.
func (r *ProductRepository) Alternatives(ctx context.Context, p *domain.Product) ([]domain.Product, error) {
	filter := bson.M{
		"_id":       bson.M{"$ne": p.ID},
		"category":  p.Category,
		"ecoRating": bson.M{"$in": domain.EcoFriendlyRatings},
	}
	return r.find(ctx, filter, options.Find().SetLimit(alternativesLimit))
}

// GetByID returns nil when the id is malformed or unknown.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var product domain.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&product); err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByIDs loads the given products keyed by id. Unknown ids are absent from
// the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error) {
	products, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	out := make(map[primitive.ObjectID]*domain.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]domain.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	products := []domain.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}
