package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      *Address           `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// PublicUser is the identity returned by login and token verification.
type PublicUser struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Phone string             `json:"phone,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}
