package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"medicine-marketplace/locks"
	"medicine-marketplace/models"
	"medicine-marketplace/repository"
	"medicine-marketplace/storage"

	"go.uber.org/zap"
)

// Notifier records a notification event for a user. Implemented by
// NotificationService; the order flow only needs this one method.
type Notifier interface {
	Notify(ctx context.Context, userID, role, typ, title, message, orderID string)
}

// VoucherGenerator issues the seller receipt after payment verification.
type VoucherGenerator interface {
	Generate(ctx context.Context, order *models.Order) (string, error)
}

// SubmitOrderRequest carries the payment proof and shipping snapshot for a
// submission.
type SubmitOrderRequest struct {
	PaymentID   string
	AddressLine string
	City        string
	Filename    string
	File        io.Reader
}

// OrderService drives the order state machine:
// cart → pending → confirmed → dispatched → delivered, crossed with
// unpaid → proof_uploaded → paid | rejected. Every stock-affecting
// transition goes through the ledger before the order document is written.
type OrderService struct {
	orders   repository.OrderRepository
	stock    *StockService
	receipts storage.ReceiptStore
	vouchers VoucherGenerator
	notifier Notifier
	locker   locks.OrderLocker
	log      *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	stock *StockService,
	receipts storage.ReceiptStore,
	vouchers VoucherGenerator,
	notifier Notifier,
	locker locks.OrderLocker,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		stock:    stock,
		receipts: receipts,
		vouchers: vouchers,
		notifier: notifier,
		locker:   locker,
		log:      log,
	}
}

// SubmitOrder moves an open order to pending/proof_uploaded: stores the
// receipt, reserves stock for every line (with rollback on failure) and
// records the shipping snapshot. Resubmission after a rejection reuses the
// reservations that are still held and only reserves what was added since.
func (s *OrderService) SubmitOrder(ctx context.Context, buyerID, orderID string, req SubmitOrderRequest) *ServiceError {
	if req.PaymentID == "" || req.AddressLine == "" || req.City == "" {
		return newError(http.StatusUnprocessableEntity, "Payment ID and shipping address are required")
	}

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForBuyer(ctx, buyerID, orderID)
	if serr != nil {
		return serr
	}
	if !order.IsOpen() {
		return newError(http.StatusBadRequest,
			"Order cannot be submitted in status %s/%s; expected an open cart or a rejected submission",
			order.OrderStatus, order.PaymentSt)
	}

	receiptPath, err := s.receipts.Save(ctx, order.ID, req.Filename, req.File)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFileType) {
			return newError(http.StatusBadRequest, "%s", err.Error())
		}
		s.log.Error("receipt save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to store payment proof")
	}

	// Reserve before any order write so a failure leaves the order
	// unchanged; ReserveItems rolls back its own partial holds.
	toReserve := reserveItemsForLines(order.Items)
	if rerr := s.stock.ReserveItems(ctx, toReserve); rerr != nil {
		var oos *OutOfStockError
		if errors.As(rerr, &oos) {
			return newError(http.StatusConflict, "%s", oos.Error())
		}
		return newError(http.StatusInternalServerError, "Failed to reserve stock")
	}
	for i := range order.Items {
		order.Items[i].ReservedQty = order.Items[i].Quantity
	}

	now := time.Now().UTC()
	order.OrderStatus = models.OrderStatusPending
	order.PaymentSt = models.PaymentStatusProofUploaded
	order.Payment.PaymentID = req.PaymentID
	order.Payment.ReceiptPath = receiptPath
	order.Payment.RejectedReason = ""
	order.Payment.UploadedAt = &now
	order.Shipping = &models.ShippingInfo{AddressLine: req.AddressLine, City: req.City}

	ev := models.TimelineEvent{
		Actor:  models.ActorBuyer,
		Action: "submit_order",
		Meta: map[string]interface{}{
			"payment_id": req.PaymentID,
			"city":       req.City,
		},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		// No order document references these holds yet; free them or the
		// stock stays locked with nothing to release it.
		s.stock.ReleaseItems(ctx, toReserve)
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to submit order")
	}

	s.notifier.Notify(ctx, order.PharmacyID, models.RoleSeller,
		models.NotifPaymentProofUploaded,
		"Payment proof uploaded",
		"A buyer submitted payment proof for order "+order.ID, order.ID)
	return nil
}

// ReuploadPayment replaces the payment proof on a submitted order without
// touching reservations or the shipping snapshot. Allowed while the order
// is pending or confirmed, so a buyer can answer a rejection or swap a bad
// upload without re-entering the address.
func (s *OrderService) ReuploadPayment(ctx context.Context, buyerID, orderID, paymentID, filename string, file io.Reader) *ServiceError {
	if paymentID == "" {
		return newError(http.StatusUnprocessableEntity, "Payment ID is required")
	}

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForBuyer(ctx, buyerID, orderID)
	if serr != nil {
		return serr
	}
	if order.OrderStatus != models.OrderStatusPending && order.OrderStatus != models.OrderStatusConfirmed {
		return newError(http.StatusBadRequest,
			"Payment proof can only be replaced on a pending or confirmed order, got %s", order.OrderStatus)
	}

	receiptPath, err := s.receipts.Save(ctx, order.ID, filename, file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFileType) {
			return newError(http.StatusBadRequest, "%s", err.Error())
		}
		s.log.Error("receipt save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to store payment proof")
	}

	now := time.Now().UTC()
	order.PaymentSt = models.PaymentStatusProofUploaded
	order.Payment.PaymentID = paymentID
	order.Payment.ReceiptPath = receiptPath
	order.Payment.RejectedReason = ""
	order.Payment.UploadedAt = &now

	ev := models.TimelineEvent{
		Actor:  models.ActorBuyer,
		Action: "upload_payment",
		Meta:   map[string]interface{}{"payment_id": paymentID},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to record payment proof")
	}

	s.notifier.Notify(ctx, order.PharmacyID, models.RoleSeller,
		models.NotifPaymentProofUploaded,
		"Payment proof uploaded",
		"A buyer uploaded new payment proof for order "+order.ID, order.ID)
	return nil
}

// VerifyPayment converts the holds into permanent deductions and promotes
// the order to confirmed/paid. If any commit fails the order stays in
// proof_uploaded for manual reconciliation. On success the seller receipt
// (voucher) is issued and the buyer is notified.
func (s *OrderService) VerifyPayment(ctx context.Context, pharmacyID, orderID string) *ServiceError {
	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForPharmacy(ctx, pharmacyID, orderID)
	if serr != nil {
		return serr
	}
	if order.PaymentSt != models.PaymentStatusProofUploaded {
		return newError(http.StatusBadRequest,
			"No proof to verify; payment status is %s, expected proof_uploaded", order.PaymentSt)
	}

	if err := s.stock.CommitItems(ctx, heldItemsForLines(order.Items)); err != nil {
		return newError(http.StatusInternalServerError,
			"Stock commit failed; order left under review for reconciliation")
	}
	for i := range order.Items {
		order.Items[i].ReservedQty = 0
	}

	order.OrderStatus = models.OrderStatusConfirmed
	order.PaymentSt = models.PaymentStatusPaid

	voucherPath, verr := s.vouchers.Generate(ctx, order)
	if verr != nil {
		// The voucher gates delivery but not confirmation; it can be
		// reissued, so verification still goes through.
		s.log.Error("voucher generation failed", zap.String("order_id", order.ID), zap.Error(verr))
	} else {
		now := time.Now().UTC()
		order.Payment.SellerReceiptPath = voucherPath
		order.Payment.SellerReceiptSentAt = &now
	}

	ev := models.TimelineEvent{Actor: models.ActorPharmacy, Action: "payment_verified"}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to confirm order")
	}

	s.notifier.Notify(ctx, order.BuyerID, models.RoleBuyer,
		models.NotifPaymentVerified,
		"Payment verified",
		"Your payment for order "+order.ID+" was verified", order.ID)
	return nil
}

// RejectPayment marks the proof rejected with a reason. Reservations are
// deliberately kept so the buyer's items cannot be sold out from under them
// while they dispute or resubmit; only cancel or quantity edits release.
func (s *OrderService) RejectPayment(ctx context.Context, pharmacyID, orderID, reason string) *ServiceError {
	if reason == "" {
		return newError(http.StatusBadRequest, "Reason is required")
	}

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForPharmacy(ctx, pharmacyID, orderID)
	if serr != nil {
		return serr
	}
	if order.PaymentSt != models.PaymentStatusProofUploaded {
		return newError(http.StatusBadRequest,
			"No proof to reject; payment status is %s, expected proof_uploaded", order.PaymentSt)
	}

	order.PaymentSt = models.PaymentStatusRejected
	order.Payment.RejectedReason = reason

	ev := models.TimelineEvent{
		Actor:  models.ActorPharmacy,
		Action: "payment_rejected",
		Meta:   map[string]interface{}{"reason": reason},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to reject payment")
	}

	s.notifier.Notify(ctx, order.BuyerID, models.RoleBuyer,
		models.NotifPaymentRejected,
		"Payment rejected",
		"Your payment proof for order "+order.ID+" was rejected: "+reason, order.ID)
	return nil
}

// Dispatch records the courier handoff for a confirmed, paid order.
func (s *OrderService) Dispatch(ctx context.Context, pharmacyID, orderID, trackingNo string) *ServiceError {
	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForPharmacy(ctx, pharmacyID, orderID)
	if serr != nil {
		return serr
	}
	if order.OrderStatus != models.OrderStatusConfirmed || order.PaymentSt != models.PaymentStatusPaid {
		return newError(http.StatusBadRequest,
			"Order cannot be dispatched in status %s/%s; expected confirmed/paid",
			order.OrderStatus, order.PaymentSt)
	}

	order.OrderStatus = models.OrderStatusDispatched
	order.Dispatch = &models.DispatchInfo{TrackingNo: trackingNo, Timestamp: time.Now().UTC()}

	ev := models.TimelineEvent{
		Actor:  models.ActorPharmacy,
		Action: "dispatched",
		Meta:   map[string]interface{}{"tracking_no": trackingNo},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to dispatch order")
	}
	return nil
}

// MarkDelivered closes the order. Allowed from confirmed or dispatched,
// and only once the seller receipt has been issued.
func (s *OrderService) MarkDelivered(ctx context.Context, pharmacyID, orderID string) *ServiceError {
	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForPharmacy(ctx, pharmacyID, orderID)
	if serr != nil {
		return serr
	}
	if order.OrderStatus != models.OrderStatusConfirmed && order.OrderStatus != models.OrderStatusDispatched {
		return newError(http.StatusBadRequest,
			"Order must be confirmed or dispatched to mark delivered, got %s", order.OrderStatus)
	}
	if order.Payment.SellerReceiptSentAt == nil {
		return newError(http.StatusBadRequest,
			"Seller receipt has not been issued yet; reissue it before marking delivered")
	}

	now := time.Now().UTC()
	order.OrderStatus = models.OrderStatusDelivered
	order.DeliveredAt = &now

	ev := models.TimelineEvent{Actor: models.ActorPharmacy, Action: "delivered"}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to mark delivered")
	}

	s.notifier.Notify(ctx, order.BuyerID, models.RoleBuyer,
		models.NotifOrderDelivered,
		"Order delivered",
		"Order "+order.ID+" was marked delivered", order.ID)
	return nil
}

// ReissueVoucher regenerates the seller receipt for a paid order whose
// initial generation failed.
func (s *OrderService) ReissueVoucher(ctx context.Context, pharmacyID, orderID string) *ServiceError {
	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, serr := s.loadForPharmacy(ctx, pharmacyID, orderID)
	if serr != nil {
		return serr
	}
	if order.PaymentSt != models.PaymentStatusPaid {
		return newError(http.StatusBadRequest,
			"Voucher requires a paid order; payment status is %s", order.PaymentSt)
	}

	voucherPath, verr := s.vouchers.Generate(ctx, order)
	if verr != nil {
		s.log.Error("voucher generation failed", zap.String("order_id", order.ID), zap.Error(verr))
		return newError(http.StatusInternalServerError, "Failed to generate seller receipt")
	}
	now := time.Now().UTC()
	order.Payment.SellerReceiptPath = voucherPath
	order.Payment.SellerReceiptSentAt = &now

	ev := models.TimelineEvent{Actor: models.ActorPharmacy, Action: "voucher_issued"}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		return newError(http.StatusInternalServerError, "Failed to record seller receipt")
	}
	return nil
}

// ReleaseAbandonedReservations is the operator escape hatch for rejected
// orders whose buyer walked away: their holds stay forever otherwise. It is
// never triggered automatically.
func (s *OrderService) ReleaseAbandonedReservations(ctx context.Context, orderID string) *ServiceError {
	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return newError(http.StatusConflict, "Order is busy, try again")
	}
	defer release()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(http.StatusNotFound, "Order not found")
		}
		return newError(http.StatusInternalServerError, "Failed to load order")
	}
	if order.OrderStatus != models.OrderStatusPending || order.PaymentSt != models.PaymentStatusRejected {
		return newError(http.StatusBadRequest,
			"Reservations can only be force-released for rejected pending orders, got %s/%s",
			order.OrderStatus, order.PaymentSt)
	}

	held := heldItemsForLines(order.Items)
	if len(held) == 0 {
		return newError(http.StatusBadRequest, "Order holds no reservations")
	}
	s.stock.ReleaseItems(ctx, held)
	for i := range order.Items {
		order.Items[i].ReservedQty = 0
	}

	ev := models.TimelineEvent{
		Actor:  models.ActorSystem,
		Action: "reservations_released",
		Meta:   map[string]interface{}{"released_lines": len(held)},
	}
	if err := s.orders.Save(ctx, order, ev); err != nil {
		s.log.Error("order save failed", zap.String("order_id", order.ID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to record release")
	}
	return nil
}

func (s *OrderService) loadForBuyer(ctx context.Context, buyerID, orderID string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindForBuyer(ctx, orderID, buyerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(http.StatusNotFound, "Order not found")
		}
		s.log.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to load order")
	}
	return order, nil
}

func (s *OrderService) loadForPharmacy(ctx context.Context, pharmacyID, orderID string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindForPharmacy(ctx, orderID, pharmacyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(http.StatusNotFound, "Order not found")
		}
		s.log.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to load order")
	}
	return order, nil
}
