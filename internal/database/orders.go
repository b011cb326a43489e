package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

// Transition is an advance-only update of one order. A zero Status or
// PaymentStatus leaves that field alone. The update only matches while
// every non-zero target is still ahead of the stored value, so applying
// the same transition twice writes once.
type Transition struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaymentID     string
	RefundID      string
	At            time.Time
}

// Filter returns the compare-and-set condition for t, or nil when t can
// never apply.
func (t Transition) Filter(id primitive.ObjectID) bson.M {
	filter := bson.M{"_id": id}
	if t.Status != "" {
		below := models.StatusesBelow(t.Status)
		if len(below) == 0 {
			return nil
		}
		filter["status"] = bson.M{"$in": below}
	}
	if t.PaymentStatus != "" {
		below := models.PaymentStatusesBelow(t.PaymentStatus)
		if len(below) == 0 {
			return nil
		}
		values := make([]interface{}, 0, len(below)+1)
		for _, status := range below {
			values = append(values, status)
		}
		values = append(values, nil)
		filter["paymentStatus"] = bson.M{"$in": values}
	}
	return filter
}

// Update returns the $set/$push document for t.
func (t Transition) Update() bson.M {
	set := bson.M{"updatedAt": t.At}
	update := bson.M{"$set": set}
	if t.Status != "" {
		set["status"] = t.Status
		update["$push"] = bson.M{"statusHistory": models.StatusEntry{Status: t.Status, Timestamp: t.At}}
	}
	if t.PaymentStatus != "" {
		set["paymentStatus"] = t.PaymentStatus
	}
	if t.PaymentID != "" {
		set["paymentId"] = t.PaymentID
	}
	if t.RefundID != "" {
		set["refundId"] = t.RefundID
	}
	return update
}

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(OrdersCollection)}
}

// Insert stores a new order and sets its ID. A second order for the same
// gateway order returns ErrDuplicate.
func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (models.Order, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Order{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (models.Order, error) {
	if gatewayOrderID == "" {
		return models.Order{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"razorpayOrderId": gatewayOrderID})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (models.Order, error) {
	var order models.Order
	err := r.collection.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error) {
	return r.list(ctx, bson.M{"userId": userID}, page, limit)
}

// List returns orders newest first, optionally narrowed to one status.
func (r *OrderRepository) List(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.list(ctx, filter, page, limit)
}

func (r *OrderRepository) list(ctx context.Context, filter bson.M, page, limit int64) ([]models.Order, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.collection.Find(ctx, filter, pageOptions(page, limit))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Apply runs t as a single conditional update and reports whether the
// order was still behind the target.
func (r *OrderRepository) Apply(ctx context.Context, id primitive.ObjectID, t Transition) (bool, error) {
	filter := t.Filter(id)
	if filter == nil {
		return false, nil
	}

	res, err := r.collection.UpdateOne(ctx, filter, t.Update())
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
