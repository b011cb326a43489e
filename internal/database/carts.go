package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{collection: db.Collection(CartsCollection)}
}

// Get returns the user's cart, or an empty one if none was saved yet.
func (r *CartRepository) Get(ctx context.Context, userID string) (models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.Cart{}, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

func (r *CartRepository) Replace(ctx context.Context, userID string, items []models.CartItem, at time.Time) error {
	if items == nil {
		items = []models.CartItem{}
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"items": items, "updatedAt": at}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *CartRepository) Clear(ctx context.Context, userID string, at time.Time) error {
	return r.Replace(ctx, userID, nil, at)
}
