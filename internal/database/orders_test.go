package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"storefront/internal/models"
)

func TestTransitionFilterOnlyMatchesOrdersBehindTarget(t *testing.T) {
	id := primitive.NewObjectID()

	filter := Transition{Status: models.StatusConfirmed}.Filter(id)
	require.NotNil(t, filter)
	assert.Equal(t, id, filter["_id"])
	assert.Equal(t, bson.M{"$in": []models.OrderStatus{models.StatusOrderPlaced}}, filter["status"])
	assert.NotContains(t, filter, "paymentStatus")

	filter = Transition{PaymentStatus: models.PaymentCaptured}.Filter(id)
	require.NotNil(t, filter)
	assert.NotContains(t, filter, "status")
	assert.Equal(t, bson.M{"$in": []interface{}{
		models.PaymentStatus(""),
		models.PaymentPending,
		models.PaymentFailed,
		nil,
	}}, filter["paymentStatus"])

	assert.Nil(t, Transition{Status: models.StatusOrderPlaced}.Filter(id))
	assert.Nil(t, Transition{PaymentStatus: models.PaymentPending}.Filter(id))
}

func TestTransitionUpdateAppendsOneHistoryEntry(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	update := Transition{Status: models.StatusPacked, At: at}.Update()
	assert.Equal(t, bson.M{"statusHistory": models.StatusEntry{Status: models.StatusPacked, Timestamp: at}}, update["$push"])
	assert.Equal(t, bson.M{"status": models.StatusPacked, "updatedAt": at}, update["$set"])

	update = Transition{PaymentStatus: models.PaymentRefunded, RefundID: "rfnd_1", At: at}.Update()
	assert.NotContains(t, update, "$push")
	assert.Equal(t, bson.M{"paymentStatus": models.PaymentRefunded, "refundId": "rfnd_1", "updatedAt": at}, update["$set"])
}

func TestOrderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "storefront.orders"

	mt.Run("insert assigns an id", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		order := models.Order{RazorpayOrderID: "order_abc", Status: models.StatusConfirmed}
		require.NoError(mt, repo.Insert(context.Background(), &order))
		assert.False(mt, order.ID.IsZero())
	})

	mt.Run("insert duplicate gateway order", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: storefront.orders index: razorpayOrderId_unique",
		}))

		order := models.Order{RazorpayOrderID: "order_abc"}
		assert.ErrorIs(mt, repo.Insert(context.Background(), &order), ErrDuplicate)
	})

	mt.Run("find by gateway order id", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "userId", Value: "user-1"},
			{Key: "razorpayOrderId", Value: "order_abc"},
			{Key: "status", Value: "CONFIRMED"},
			{Key: "paymentStatus", Value: "captured"},
		}))

		order, err := repo.FindByGatewayOrderID(context.Background(), "order_abc")
		require.NoError(mt, err)
		assert.Equal(mt, id, order.ID)
		assert.Equal(mt, models.StatusConfirmed, order.Status)
		assert.Equal(mt, models.PaymentCaptured, order.PaymentStatus)
	})

	mt.Run("find missing order", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByGatewayOrderID(context.Background(), "order_missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find by malformed id", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}

		_, err := repo.FindByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("apply reports a matched update", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		changed, err := repo.Apply(context.Background(), primitive.NewObjectID(), Transition{Status: models.StatusPacked, At: time.Now()})
		require.NoError(mt, err)
		assert.True(mt, changed)
	})

	mt.Run("apply on an order already at target", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		changed, err := repo.Apply(context.Background(), primitive.NewObjectID(), Transition{Status: models.StatusConfirmed, At: time.Now()})
		require.NoError(mt, err)
		assert.False(mt, changed)
	})

	mt.Run("list by user", func(mt *mtest.T) {
		repo := &OrderRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "user-1"}},
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "user-1"}},
			),
		)

		orders, total, err := repo.ListByUser(context.Background(), "user-1", 1, 20)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), total)
		assert.Len(mt, orders, 2)
	})
}

func TestCheckoutRepositoryNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing session", func(mt *mtest.T) {
		repo := &CheckoutRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.checkout_sessions", mtest.FirstBatch))

		_, err := repo.FindByGatewayOrderID(context.Background(), "order_missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestCartRepositoryGetWithoutSavedCart(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empty cart", func(mt *mtest.T) {
		repo := &CartRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.carts", mtest.FirstBatch))

		cart, err := repo.Get(context.Background(), "user-1")
		require.NoError(mt, err)
		assert.Equal(mt, "user-1", cart.UserID)
		assert.Empty(mt, cart.Items)
		assert.NotNil(mt, cart.Items)
	})
}

func TestProductRepositorySkipsMalformedIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no valid ids", func(mt *mtest.T) {
		repo := &ProductRepository{collection: mt.Coll}

		found, err := repo.FindActiveByIDs(context.Background(), []string{"nope", ""})
		require.NoError(mt, err)
		assert.Empty(mt, found)
	})
}
