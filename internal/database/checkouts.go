package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type CheckoutRepository struct {
	collection *mongo.Collection
}

func NewCheckoutRepository(db *mongo.Database) *CheckoutRepository {
	return &CheckoutRepository{collection: db.Collection(CheckoutCollection)}
}

func (r *CheckoutRepository) Insert(ctx context.Context, session models.CheckoutSession) error {
	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *CheckoutRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.collection.FindOne(ctx, bson.M{"_id": gatewayOrderID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CheckoutSession{}, ErrNotFound
	}
	if err != nil {
		return models.CheckoutSession{}, err
	}
	return session, nil
}

// MarkCompleted links the session to the order it produced. Completed
// sessions fall outside the TTL index and are kept.
func (r *CheckoutRepository) MarkCompleted(ctx context.Context, gatewayOrderID, orderID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": gatewayOrderID},
		bson.M{"$set": bson.M{
			"state":       models.CheckoutCompleted,
			"orderId":     orderID,
			"completedAt": at,
		}},
	)
	return err
}
