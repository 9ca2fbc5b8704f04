package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const DefaultDatabase = "ecocart-db"

const (
	UsersCollection    = "users"
	ProductsCollection = "products"
	CartsCollection    = "carts"
	OrdersCollection   = "orders"
	PaymentsCollection = "payments"
)

// Connect dials MongoDB, verifies the connection and returns the database
// named in the URI path (DefaultDatabase when the path is empty).
func Connect(ctx context.Context, uri string, monitor *event.CommandMonitor) (*mongo.Client, *mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("parse mongodb uri: %w", err)
	}

	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(NewRegistry()).
		SetServerSelectionTimeout(10 * time.Second)
	if monitor != nil {
		opts.SetMonitor(monitor)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	name := cs.Database
	if name == "" {
		name = DefaultDatabase
	}

	return client, client.Database(name), nil
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
