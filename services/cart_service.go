package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medicine-marketplace/locks"
	"medicine-marketplace/models"
	"medicine-marketplace/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartResult tells the caller whether the item was merged into an
// existing order or started a new one.
type AddToCartResult struct {
	OrderID string `json:"order_id"`
	Merged  bool   `json:"merged"`
}

// CartService turns add/update/cancel requests into mutations of the
// buyer's single open order per pharmacy. All mutations of an existing
// order run under the per-order lock.
type CartService struct {
	orders     repository.OrderRepository
	medicines  repository.MedicineRepository
	pharmacies repository.PharmacyRepository
	stock      *StockService
	locker     locks.OrderLocker
	log        *zap.Logger
}

func NewCartService(
	orders repository.OrderRepository,
	medicines repository.MedicineRepository,
	pharmacies repository.PharmacyRepository,
	stock *StockService,
	locker locks.OrderLocker,
	log *zap.Logger,
) *CartService {
	return &CartService{
		orders:     orders,
		medicines:  medicines,
		pharmacies: pharmacies,
		stock:      stock,
		locker:     locker,
		log:        log,
	}
}

// AddToCart merges the requested quantity into the buyer's open order for
// the medicine's pharmacy, creating a fresh cart when none exists. While
// the order is a cart this only checks availability; the reservation is
// taken at submission. If the order is already pending (a submission
// reserved stock, then payment was rejected), the extra quantity must be
// held immediately — on failure the order is left untouched.
func (s *CartService) AddToCart(ctx context.Context, buyerID, medicineID string, quantity int) (*AddToCartResult, *ServiceError) {
	if quantity < 1 {
		return nil, newError(http.StatusUnprocessableEntity, "Quantity must be >= 1")
	}

	med, err := s.medicines.Get(ctx, medicineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(http.StatusNotFound, "Medicine not found")
		}
		s.log.Error("medicine lookup failed", zap.String("medicine_id", medicineID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to load medicine")
	}

	// Serialize find-or-create per buyer/pharmacy pair so two rapid
	// add-to-cart requests cannot create two open orders.
	pairRelease, lerr := s.locker.Acquire(ctx, "cart:"+buyerID+":"+med.SellerID)
	if lerr != nil {
		return nil, newError(http.StatusConflict, "Cart is busy, try again")
	}
	defer pairRelease()

	if med.Available() < quantity {
		return nil, newError(http.StatusConflict,
			"Only %d of %s available", med.Available(), med.Name)
	}

	existing, err := s.orders.FindOpen(ctx, buyerID, med.SellerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error("open order lookup failed", zap.String("buyer_id", buyerID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to load order")
	}

	if existing == nil {
		order := s.newCartOrder(ctx, buyerID, med, quantity)
		if err := s.orders.Insert(ctx, order); err != nil {
			s.log.Error("order insert failed", zap.String("buyer_id", buyerID), zap.Error(err))
			return nil, newError(http.StatusInternalServerError, "Failed to create order")
		}
		return &AddToCartResult{OrderID: order.ID, Merged: false}, nil
	}

	release, err := s.locker.Acquire(ctx, existing.ID)
	if err != nil {
		return nil, newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	// Re-read under the lock; another request may have raced us here.
	order, err := s.orders.FindByID(ctx, existing.ID)
	if err != nil || !order.IsOpen() {
		return nil, newError(http.StatusConflict, "Order changed, try again")
	}

	if order.OrderStatus == models.OrderStatusPending {
		// Submitted order: the new quantity needs a hold right away.
		rerr := s.stock.ReserveItems(ctx, []ReserveItem{{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Quantity:     quantity,
		}})
		var oos *OutOfStockError
		if errors.As(rerr, &oos) {
			return nil, newError(http.StatusConflict, "%s", oos.Error())
		}
		if rerr != nil {
			return nil, newError(http.StatusInternalServerError, "Failed to reserve stock")
		}
	}

	s.mergeLine(order, med, quantity)
	order.RecomputeTotal()

	ev := models.TimelineEvent{
		Actor:  models.ActorBuyer,
		Action: "add_to_cart",
		Meta: map[string]interface{}{
			"medicine_id":    med.ID,
			"quantity_added": quantity,
		},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		if order.OrderStatus == models.OrderStatusPending {
			s.stock.ReleaseItems(ctx, []ReserveItem{{MedicineID: med.ID, Quantity: quantity}})
		}
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to update order")
	}
	return &AddToCartResult{OrderID: order.ID, Merged: true}, nil
}

// UpdateLineQuantity adjusts an existing line by a signed delta. While the
// order is pending the delta is mirrored through the ledger before the
// document changes. A line reaching zero is removed; removing the last
// line deletes the order rather than leaving an empty cart.
func (s *CartService) UpdateLineQuantity(ctx context.Context, buyerID, orderID, medicineID string, delta int) *ServiceError {
	if delta == 0 {
		return newError(http.StatusUnprocessableEntity, "Delta must be non-zero")
	}

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadOpenOrder(ctx, buyerID, orderID)
	if serr != nil {
		return serr
	}

	idx := order.FindLine(medicineID)
	if idx < 0 {
		return newError(http.StatusNotFound, "Item not in order")
	}
	line := &order.Items[idx]
	newQty := line.Quantity + delta

	pending := order.OrderStatus == models.OrderStatusPending
	if pending && delta > 0 {
		rerr := s.stock.ReserveItems(ctx, []ReserveItem{{
			MedicineID:   line.MedicineID,
			MedicineName: line.MedicineName,
			Quantity:     delta,
		}})
		var oos *OutOfStockError
		if errors.As(rerr, &oos) {
			return newError(http.StatusConflict, "%s", oos.Error())
		}
		if rerr != nil {
			return newError(http.StatusInternalServerError, "Failed to reserve stock")
		}
		line.ReservedQty += delta
	}

	if newQty <= 0 {
		if pending && line.ReservedQty > 0 {
			s.stock.ReleaseItems(ctx, []ReserveItem{{
				MedicineID: line.MedicineID,
				Quantity:   line.ReservedQty,
			}})
		}
		order.Items = append(order.Items[:idx], order.Items[idx+1:]...)
	} else {
		if pending && delta < 0 {
			toRelease := -delta
			if toRelease > line.ReservedQty {
				toRelease = line.ReservedQty
			}
			if toRelease > 0 {
				s.stock.ReleaseItems(ctx, []ReserveItem{{
					MedicineID: line.MedicineID,
					Quantity:   toRelease,
				}})
				line.ReservedQty -= toRelease
			}
		}
		line.Quantity = newQty
	}

	if len(order.Items) == 0 {
		if err := s.orders.Delete(ctx, order.ID); err != nil {
			s.log.Error("empty order delete failed", zap.String("order_id", order.ID), zap.Error(err))
			return newError(http.StatusInternalServerError, "Failed to delete order")
		}
		return nil
	}

	order.RecomputeTotal()
	ev := models.TimelineEvent{
		Actor:  models.ActorBuyer,
		Action: "update_item",
		Meta: map[string]interface{}{
			"medicine_id": medicineID,
			"delta":       delta,
		},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		if pending && delta > 0 {
			s.stock.ReleaseItems(ctx, []ReserveItem{{MedicineID: medicineID, Quantity: delta}})
		}
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to update order")
	}
	return nil
}

// CancelOrder deletes an open order, releasing any reservations it holds.
func (s *CartService) CancelOrder(ctx context.Context, buyerID, orderID string) *ServiceError {
	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadOpenOrder(ctx, buyerID, orderID)
	if serr != nil {
		return serr
	}

	if held := heldItemsForLines(order.Items); len(held) > 0 {
		s.stock.ReleaseItems(ctx, held)
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		s.log.Error("order delete failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to cancel order")
	}
	return nil
}

func (s *CartService) loadOpenOrder(ctx context.Context, buyerID, orderID string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindForBuyer(ctx, orderID, buyerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(http.StatusNotFound, "Order not found")
		}
		s.log.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to load order")
	}
	if !order.IsOpen() {
		return nil, newError(http.StatusBadRequest,
			"Order can no longer be edited (status %s/%s)", order.OrderStatus, order.PaymentSt)
	}
	return order, nil
}

func (s *CartService) mergeLine(order *models.Order, med *models.Medicine, quantity int) {
	if idx := order.FindLine(med.ID); idx >= 0 {
		order.Items[idx].Quantity += quantity
		// A merge is a new add-time, so the snapshot follows the current
		// catalog price.
		order.Items[idx].Price = med.SellingPrice
		order.Items[idx].BuyingPrice = med.BuyingPrice
		if order.OrderStatus == models.OrderStatusPending {
			order.Items[idx].ReservedQty += quantity
		}
		return
	}
	line := models.LineItem{
		MedicineID:   med.ID,
		MedicineName: med.Name,
		Quantity:     quantity,
		Price:        med.SellingPrice,
		BuyingPrice:  med.BuyingPrice,
	}
	if order.OrderStatus == models.OrderStatusPending {
		line.ReservedQty = quantity
	}
	order.Items = append(order.Items, line)
}

func (s *CartService) newCartOrder(ctx context.Context, buyerID string, med *models.Medicine, quantity int) *models.Order {
	now := time.Now().UTC()
	order := &models.Order{
		ID:           uuid.NewString(),
		BuyerID:      buyerID,
		PharmacyID:   med.SellerID,
		PharmacyName: s.pharmacies.DisplayName(ctx, med.SellerID),
		Items: []models.LineItem{{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Quantity:     quantity,
			Price:        med.SellingPrice,
			BuyingPrice:  med.BuyingPrice,
		}},
		OrderStatus: models.OrderStatusCart,
		PaymentSt:   models.PaymentStatusUnpaid,
		Timeline: []models.TimelineEvent{{
			Timestamp: now,
			Actor:     models.ActorBuyer,
			Action:    "create_cart",
			Meta: map[string]interface{}{
				"medicine_id": med.ID,
				"quantity":    quantity,
			},
		}},
	}
	order.RecomputeTotal()
	return order
}
