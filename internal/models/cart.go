package models

import "time"

// CartItem references a product; prices are resolved at checkout.
type CartItem struct {
	ProductID string `bson:"productId" json:"productId" binding:"required"`
	Quantity  int    `bson:"quantity" json:"quantity" binding:"required,gt=0"`
}

// Cart is keyed by the owning user.
type Cart struct {
	UserID    string     `bson:"_id" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}
