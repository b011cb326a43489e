package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureOrderIndexes creates the lookup index for order history and the
// unique gateway order index that makes order creation at-most-once.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(OrdersCollection).Indexes()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
		{
			Keys: bson.D{{Key: "razorpayOrderId", Value: 1}},
			Options: options.Index().
				SetName("razorpayOrderId_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"razorpayOrderId": bson.M{"$type": "string"},
				}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("status_createdAt"),
		},
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	if _, err := indexes.CreateMany(ctx, indexModels); err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: order indexes created")
	return nil
}

// EnsureCheckoutIndexes expires abandoned checkout sessions.
func EnsureCheckoutIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(CheckoutCollection).Indexes()

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().
				SetName("expiresAt_ttl").
				SetExpireAfterSeconds(0).
				SetPartialFilterExpression(bson.M{"state": "open"}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	}

	log.Println("EnsureCheckoutIndexes: creating checkout indexes")
	if _, err := indexes.CreateMany(ctx, indexModels); err != nil {
		log.Println("EnsureCheckoutIndexes: index error:", err)
		return err
	}
	log.Println("EnsureCheckoutIndexes: checkout indexes created")
	return nil
}
