package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EcoRating grades a product's environmental impact, A best through F worst.
type EcoRating string

const (
	EcoRatingA EcoRating = "A"
	EcoRatingB EcoRating = "B"
	EcoRatingC EcoRating = "C"
	EcoRatingD EcoRating = "D"
	EcoRatingF EcoRating = "F"
)

var ecoRatingRank = map[EcoRating]int{
	EcoRatingA: 5,
	EcoRatingB: 4,
	EcoRatingC: 3,
	EcoRatingD: 2,
	EcoRatingF: 1,
}

// EcoFriendlyRatings are the grades offered as alternatives.
var EcoFriendlyRatings = []EcoRating{EcoRatingA, EcoRatingB}

func ParseEcoRating(s string) (EcoRating, error) {
	r := EcoRating(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := ecoRatingRank[r]; !ok {
		return "", fmt.Errorf("unknown eco rating %q", s)
	}
	return r, nil
}

// Better reports whether r is a strictly better grade than other.
func (r EcoRating) Better(other EcoRating) bool {
	return ecoRatingRank[r] > ecoRatingRank[other]
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Brand       string             `bson:"brand" json:"brand"`
	Category    string             `bson:"category" json:"category"`
	Description string             `bson:"description" json:"description"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Image       string             `bson:"image" json:"image"`
	EcoRating   EcoRating          `bson:"ecoRating" json:"ecoRating"`
	Featured    bool               `bson:"featured" json:"featured"`
	InStock     bool               `bson:"inStock" json:"inStock"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
