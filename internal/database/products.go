package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(ProductsCollection)}
}

// FindActiveByIDs loads the purchasable products among ids, keyed by hex
// ID. Unknown, malformed, inactive and deleted IDs are simply absent.
func (r *ProductRepository) FindActiveByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, objectID)
	}

	found := make(map[string]models.Product, len(objectIDs))
	if len(objectIDs) == 0 {
		return found, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"_id":       bson.M{"$in": objectIDs},
		"isActive":  true,
		"isDeleted": bson.M{"$ne": true},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for _, product := range products {
		found[product.ID.Hex()] = product
	}
	return found, nil
}
