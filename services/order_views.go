package services

import (
	"context"
	"net/http"

	"medicine-marketplace/models"
	"medicine-marketplace/repository"
)

// Read-side projections over order aggregates. Currency is formatted with
// the fixed two-decimal suffix and timestamps are pre-rendered so templates
// and clients stay dumb.

type LineItemView struct {
	MedicineID   string  `json:"medicine_id"`
	MedicineName string  `json:"medicine_name"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	LineTotal    float64 `json:"line_total"`
}

type OrderSummary struct {
	ID             string         `json:"id"`
	PharmacyName   string         `json:"pharmacy_name"`
	BuyerID        string         `json:"buyer_id"`
	OrderStatus    string         `json:"order_status"`
	PaymentStatus  string         `json:"payment_status"`
	FormattedTotal string         `json:"formatted_total"`
	CreatedAt      string         `json:"created_at"`
	Items          []LineItemView `json:"items"`
	RejectedReason string         `json:"rejected_reason,omitempty"`
}

type OrderDetail struct {
	OrderSummary
	Payment  models.PaymentInfo     `json:"payment"`
	Shipping *models.ShippingInfo   `json:"shipping,omitempty"`
	Dispatch *models.DispatchInfo   `json:"dispatch,omitempty"`
	Timeline []models.TimelineEvent `json:"timeline"`
}

// BuyerOrders lists a buyer's orders with the optional search, status and
// sort filters from the listing page.
func (s *OrderService) BuyerOrders(ctx context.Context, buyerID, search, status, sort string) ([]OrderSummary, *ServiceError) {
	orders, err := s.orders.ListByBuyer(ctx, buyerID, listOptions(search, status, sort))
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch orders")
	}
	return summaries(orders), nil
}

// BuyerOrderDetail returns the full view of one of the buyer's orders.
func (s *OrderService) BuyerOrderDetail(ctx context.Context, buyerID, orderID string) (*OrderDetail, *ServiceError) {
	order, serr := s.loadForBuyer(ctx, buyerID, orderID)
	if serr != nil {
		return nil, serr
	}
	return detail(order), nil
}

// PharmacyOrders lists a pharmacy's orders with optional status filters.
func (s *OrderService) PharmacyOrders(ctx context.Context, pharmacyID, status, payment string) ([]OrderSummary, *ServiceError) {
	orders, err := s.orders.ListByPharmacy(ctx, pharmacyID, status, payment)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch orders")
	}
	return summaries(orders), nil
}

// PharmacyReviewQueue lists submissions awaiting verification or recently
// rejected, newest activity first.
func (s *OrderService) PharmacyReviewQueue(ctx context.Context, pharmacyID string) ([]OrderSummary, *ServiceError) {
	orders, err := s.orders.ListPendingReview(ctx, pharmacyID)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch review queue")
	}
	return summaries(orders), nil
}

// PharmacyOrderDetail returns the full view of one of the pharmacy's orders.
func (s *OrderService) PharmacyOrderDetail(ctx context.Context, pharmacyID, orderID string) (*OrderDetail, *ServiceError) {
	order, serr := s.loadForPharmacy(ctx, pharmacyID, orderID)
	if serr != nil {
		return nil, serr
	}
	return detail(order), nil
}

// AllOrders is the admin oversight listing.
func (s *OrderService) AllOrders(ctx context.Context) ([]OrderSummary, *ServiceError) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch orders")
	}
	return summaries(orders), nil
}

func listOptions(search, status, sort string) repository.BuyerListOptions {
	opts := repository.BuyerListOptions{Search: search, Sort: sort}
	switch status {
	case "cart", "pending", "confirmed", "dispatched", "delivered":
		opts.Status = status
	}
	return opts
}

func summaries(orders []models.Order) []OrderSummary {
	out := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		out = append(out, summary(&orders[i]))
	}
	return out
}

func summary(o *models.Order) OrderSummary {
	items := make([]LineItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemView{
			MedicineID:   it.MedicineID,
			MedicineName: it.MedicineName,
			Quantity:     it.Quantity,
			Price:        it.Price,
			LineTotal:    float64(it.Quantity) * it.Price,
		})
	}
	return OrderSummary{
		ID:             o.ID,
		PharmacyName:   o.PharmacyName,
		BuyerID:        o.BuyerID,
		OrderStatus:    string(o.OrderStatus),
		PaymentStatus:  string(o.PaymentSt),
		FormattedTotal: models.FormatCurrency(o.TotalAmount),
		CreatedAt:      o.CreatedAt.Format("2006-01-02 15:04"),
		Items:          items,
		RejectedReason: o.Payment.RejectedReason,
	}
}

func detail(o *models.Order) *OrderDetail {
	d := &OrderDetail{
		OrderSummary: summary(o),
		Payment:      o.Payment,
		Shipping:     o.Shipping,
		Dispatch:     o.Dispatch,
		Timeline:     o.Timeline,
	}
	if d.Timeline == nil {
		d.Timeline = []models.TimelineEvent{}
	}
	return d
}
