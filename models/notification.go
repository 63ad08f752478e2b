package models

import "time"

// Notification types emitted by order lifecycle transitions.
const (
	NotifPaymentProofUploaded = "payment_proof_uploaded"
	NotifPaymentVerified      = "payment_verified"
	NotifPaymentRejected      = "payment_rejected"
	NotifOrderDelivered       = "order_delivered"
)

type Notification struct {
	ID        string     `bson:"_id" json:"id"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Role      string     `bson:"role" json:"role"`
	Type      string     `bson:"type" json:"type"`
	Title     string     `bson:"title" json:"title"`
	Message   string     `bson:"message" json:"message"`
	OrderID   string     `bson:"order_id,omitempty" json:"order_id,omitempty"`
	IsRead    bool       `bson:"is_read" json:"is_read"`
	ReadAt    *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// OrderEvent is the payload published to the order-events topic whenever a
// notification is recorded. Delivery is best-effort; the database record is
// the source of truth.
type OrderEvent struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
