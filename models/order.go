package models

import "time"

type OrderStatus string

const (
	OrderStatusCart       OrderStatus = "cart"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusProofUploaded PaymentStatus = "proof_uploaded"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusRejected      PaymentStatus = "rejected"
)

// Timeline actors.
const (
	ActorBuyer    = "buyer"
	ActorPharmacy = "pharmacy"
	ActorSystem   = "system"
)

// LineItem is one medicine entry inside an order. Name and prices are
// snapshots taken at add-time and are never refreshed from the catalog,
// so the order records what the buyer actually agreed to.
type LineItem struct {
	MedicineID   string  `bson:"medicine_id" json:"medicine_id"`
	MedicineName string  `bson:"medicine_name" json:"medicine_name"`
	Quantity     int     `bson:"quantity" json:"quantity"`
	Price        float64 `bson:"price" json:"price"`
	BuyingPrice  float64 `bson:"buying_price" json:"buying_price"`
	// ReservedQty mirrors Quantity once the order has been submitted and
	// stock is held for this line. Zero while the order is still a cart.
	ReservedQty int     `bson:"reserved_qty" json:"reserved_qty"`
	Total       float64 `bson:"total" json:"total"`
}

// TimelineEvent is an immutable audit entry. Events are appended in the
// same database write as the state change they document.
type TimelineEvent struct {
	Timestamp time.Time              `bson:"ts" json:"ts"`
	Actor     string                 `bson:"actor" json:"actor"`
	Action    string                 `bson:"action" json:"action"`
	Meta      map[string]interface{} `bson:"meta,omitempty" json:"meta,omitempty"`
}

// PaymentInfo holds the manually reviewed payment proof plus the seller
// receipt (voucher) issued after verification.
type PaymentInfo struct {
	PaymentID           string     `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	ReceiptPath         string     `bson:"receipt_path,omitempty" json:"receipt_path,omitempty"`
	RejectedReason      string     `bson:"rejected_reason,omitempty" json:"rejected_reason,omitempty"`
	UploadedAt          *time.Time `bson:"uploaded_at,omitempty" json:"uploaded_at,omitempty"`
	SellerReceiptPath   string     `bson:"seller_receipt_path,omitempty" json:"seller_receipt_path,omitempty"`
	SellerReceiptSentAt *time.Time `bson:"seller_receipt_sent_at,omitempty" json:"seller_receipt_sent_at,omitempty"`
}

// ShippingInfo is the address snapshot captured at submission.
type ShippingInfo struct {
	AddressLine string `bson:"address_line" json:"address_line"`
	City        string `bson:"city" json:"city"`
}

// DispatchInfo records the courier handoff.
type DispatchInfo struct {
	TrackingNo string    `bson:"tracking_no,omitempty" json:"tracking_no,omitempty"`
	Timestamp  time.Time `bson:"ts" json:"ts"`
}

// Order is the aggregate for one buyer/pharmacy pair: a cart that grows
// into a submitted, verified and eventually delivered order. At most one
// open order exists per (buyer, pharmacy) pair at a time.
type Order struct {
	ID           string          `bson:"_id" json:"id"`
	BuyerID      string          `bson:"buyer_id" json:"buyer_id"`
	PharmacyID   string          `bson:"pharmacy_id" json:"pharmacy_id"`
	PharmacyName string          `bson:"pharmacy_name" json:"pharmacy_name"`
	Items        []LineItem      `bson:"items" json:"items"`
	TotalAmount  float64         `bson:"total_amount" json:"total_amount"`
	OrderStatus  OrderStatus     `bson:"order_status" json:"order_status"`
	PaymentSt    PaymentStatus   `bson:"payment_status" json:"payment_status"`
	Payment      PaymentInfo     `bson:"payment" json:"payment"`
	Shipping     *ShippingInfo   `bson:"shipping,omitempty" json:"shipping,omitempty"`
	Dispatch     *DispatchInfo   `bson:"dispatch,omitempty" json:"dispatch,omitempty"`
	DeliveredAt  *time.Time      `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	Timeline     []TimelineEvent `bson:"timeline" json:"timeline"`
	CreatedAt    time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the buyer may still edit this order: a cart, or a
// submitted order whose payment is unpaid or was rejected.
func (o *Order) IsOpen() bool {
	if o.OrderStatus != OrderStatusCart && o.OrderStatus != OrderStatusPending {
		return false
	}
	return o.PaymentSt == PaymentStatusUnpaid || o.PaymentSt == PaymentStatusRejected
}

// FindLine returns the index of the line item for the given medicine,
// or -1 if the order has no such line.
func (o *Order) FindLine(medicineID string) int {
	for i := range o.Items {
		if o.Items[i].MedicineID == medicineID {
			return i
		}
	}
	return -1
}

// RecomputeTotal refreshes every line total and the order total from the
// current quantities and price snapshots.
func (o *Order) RecomputeTotal() {
	var total float64
	for i := range o.Items {
		o.Items[i].Total = float64(o.Items[i].Quantity) * o.Items[i].Price
		total += o.Items[i].Total
	}
	o.TotalAmount = total
}
