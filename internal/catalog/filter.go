package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ecocart/storefront/internal/domain"
)

// Filter narrows a product listing. Zero values match everything.
type Filter struct {
	Search   string
	Category string
	Ratings  []domain.EcoRating
	Brands   []string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Brands:   splitList(q.Get("brand")),
	}

	for _, raw := range splitList(q.Get("rating")) {
		rating, err := domain.ParseEcoRating(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Ratings = append(f.Ratings, rating)
	}

	var err error
	if f.MinPrice, err = parsePrice(q.Get("minPrice")); err != nil {
		return Filter{}, fmt.Errorf("minPrice: %w", err)
	}
	if f.MaxPrice, err = parsePrice(q.Get("maxPrice")); err != nil {
		return Filter{}, fmt.Errorf("maxPrice: %w", err)
	}
	return f, nil
}

// BSON renders the filter as a products query document.
func (f Filter) BSON() bson.M {
	query := bson.M{}

	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		query["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if f.Category != "" {
		query["category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Category) + "$", "$options": "i"}
	}
	if len(f.Ratings) > 0 {
		query["ecoRating"] = bson.M{"$in": f.Ratings}
	}
	if len(f.Brands) > 0 {
		query["brand"] = bson.M{"$in": f.Brands}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	return query
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
