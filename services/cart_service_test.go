package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"medicine-marketplace/locks"
	"medicine-marketplace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCartService(ledger *memLedger, orders *memOrders) *CartService {
	log := zap.NewNop()
	return NewCartService(orders, ledger, &fakePharmacies{name: "City Pharmacy"},
		NewStockService(ledger, log), locks.NewMemoryLocker(), log)
}

func TestAddToCart_CreatesNewOrder(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{
		ID: "m1", SellerID: "ph1", Name: "Paracetamol", SellingPrice: 1500, Stock: 10,
	})
	orders := newMemOrders()
	svc := newTestCartService(ledger, orders)

	res, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 3)

	require.Nil(t, serr)
	assert.False(t, res.Merged)

	order := orders.get(res.OrderID)
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusCart, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentSt)
	assert.Equal(t, "City Pharmacy", order.PharmacyName)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 0, order.Items[0].ReservedQty, "carts hold no stock")
	assert.Equal(t, 4500.0, order.TotalAmount)
	require.Len(t, order.Timeline, 1)
	assert.Equal(t, "create_cart", order.Timeline[0].Action)

	// Cart creation takes no reservation.
	assert.Equal(t, 0, ledger.snapshot("m1").Reserved)
}

func TestAddToCart_MergesIntoOpenOrder(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{
		ID: "m1", SellerID: "ph1", Name: "Paracetamol", SellingPrice: 1500, Stock: 10,
	})
	orders := newMemOrders()
	svc := newTestCartService(ledger, orders)

	res1, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 2)
	require.Nil(t, serr)
	res2, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 3)
	require.Nil(t, serr)

	assert.Equal(t, res1.OrderID, res2.OrderID, "one open order per buyer/pharmacy pair")
	assert.True(t, res2.Merged)

	order := orders.get(res1.OrderID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 5, order.Items[0].Quantity)
	assert.Equal(t, 7500.0, order.TotalAmount)
}

func TestAddToCart_MergeRefreshesPriceSnapshot(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{
		ID: "m1", SellerID: "ph1", Name: "Paracetamol", SellingPrice: 10, Stock: 10,
	})
	orders := newMemOrders()
	svc := newTestCartService(ledger, orders)

	res, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 2)
	require.Nil(t, serr)

	ledger.setSellingPrice("m1", 15)
	_, serr = svc.AddToCart(context.Background(), "buyer1", "m1", 1)
	require.Nil(t, serr)

	order := orders.get(res.OrderID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 15.0, order.Items[0].Price, "a merge takes a fresh price snapshot")
	assert.Equal(t, 45.0, order.TotalAmount)
}

func TestAddToCart_PendingSaveFailureRollsBackHold(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{
		ID: "m1", SellerID: "ph1", Name: "Paracetamol", SellingPrice: 1500, Stock: 10, Reserved: 2,
	})
	pending := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusPending, PaymentSt: models.PaymentStatusRejected,
		Items: []models.LineItem{{
			MedicineID: "m1", MedicineName: "Paracetamol",
			Quantity: 2, ReservedQty: 2, Price: 1500,
		}},
	}
	orders := newMemOrders(pending)
	orders.saveErr = errors.New("connection reset")
	svc := newTestCartService(ledger, orders)

	_, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 3)

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
	assert.Equal(t, 2, ledger.snapshot("m1").Reserved,
		"the hold taken for the failed merge must be released")
}

func TestAddToCart_RejectsInvalidQuantity(t *testing.T) {
	svc := newTestCartService(newMemLedger(), newMemOrders())

	_, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 0)

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusUnprocessableEntity, serr.StatusCode)
}

func TestAddToCart_RejectsWhenAvailabilityShort(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{
		ID: "m1", SellerID: "ph1", Name: "Paracetamol", SellingPrice: 1500, Stock: 5, Reserved: 4,
	})
	svc := newTestCartService(ledger, newMemOrders())

	_, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 2)

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusConflict, serr.StatusCode)
	assert.Contains(t, serr.Message, "Only 1 of Paracetamol available")
}

func TestAddToCart_PendingOrderReservesImmediately(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{
		ID: "m1", SellerID: "ph1", Name: "Paracetamol", SellingPrice: 1500, Stock: 10,
	})
	pending := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusPending, PaymentSt: models.PaymentStatusRejected,
		Items: []models.LineItem{{
			MedicineID: "m1", MedicineName: "Paracetamol",
			Quantity: 2, ReservedQty: 2, Price: 1500,
		}},
	}
	orders := newMemOrders(pending)
	svc := newTestCartService(ledger, orders)

	res, serr := svc.AddToCart(context.Background(), "buyer1", "m1", 3)

	require.Nil(t, serr)
	assert.Equal(t, "o1", res.OrderID)
	assert.Equal(t, 3, ledger.snapshot("m1").Reserved, "addition to a submitted order is held right away")

	order := orders.get("o1")
	assert.Equal(t, 5, order.Items[0].Quantity)
	assert.Equal(t, 5, order.Items[0].ReservedQty)
}

func TestUpdateLineQuantity_RemovesLineAtZero(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{ID: "m1", SellerID: "ph1", Name: "Paracetamol", Stock: 10})
	order := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusCart, PaymentSt: models.PaymentStatusUnpaid,
		Items: []models.LineItem{
			{MedicineID: "m1", MedicineName: "Paracetamol", Quantity: 2, Price: 1500},
			{MedicineID: "m2", MedicineName: "Ibuprofen", Quantity: 1, Price: 2000},
		},
	}
	orders := newMemOrders(order)
	svc := newTestCartService(ledger, orders)

	serr := svc.UpdateLineQuantity(context.Background(), "buyer1", "o1", "m1", -2)

	require.Nil(t, serr)
	got := orders.get("o1")
	require.Len(t, got.Items, 1)
	assert.Equal(t, "m2", got.Items[0].MedicineID)
	assert.Equal(t, 2000.0, got.TotalAmount)
}

func TestUpdateLineQuantity_DeletesEmptyOrder(t *testing.T) {
	ledger := newMemLedger()
	order := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusCart, PaymentSt: models.PaymentStatusUnpaid,
		Items: []models.LineItem{
			{MedicineID: "m1", MedicineName: "Paracetamol", Quantity: 1, Price: 1500},
		},
	}
	orders := newMemOrders(order)
	svc := newTestCartService(ledger, orders)

	serr := svc.UpdateLineQuantity(context.Background(), "buyer1", "o1", "m1", -1)

	require.Nil(t, serr)
	assert.Nil(t, orders.get("o1"), "an order with no lines is deleted, not kept empty")
}

func TestUpdateLineQuantity_PendingMirrorsLedger(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{ID: "m1", SellerID: "ph1", Name: "Paracetamol", Stock: 10, Reserved: 4})
	order := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusPending, PaymentSt: models.PaymentStatusRejected,
		Items: []models.LineItem{
			{MedicineID: "m1", MedicineName: "Paracetamol", Quantity: 4, ReservedQty: 4, Price: 1500},
		},
	}
	orders := newMemOrders(order)
	svc := newTestCartService(ledger, orders)

	serr := svc.UpdateLineQuantity(context.Background(), "buyer1", "o1", "m1", -3)
	require.Nil(t, serr)
	assert.Equal(t, 1, ledger.snapshot("m1").Reserved)
	assert.Equal(t, 1, orders.get("o1").Items[0].ReservedQty)

	serr = svc.UpdateLineQuantity(context.Background(), "buyer1", "o1", "m1", 2)
	require.Nil(t, serr)
	assert.Equal(t, 3, ledger.snapshot("m1").Reserved)
	assert.Equal(t, 3, orders.get("o1").Items[0].ReservedQty)
}

func TestUpdateLineQuantity_SaveFailureRollsBackHold(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{ID: "m1", SellerID: "ph1", Name: "Paracetamol", Stock: 10, Reserved: 4})
	order := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusPending, PaymentSt: models.PaymentStatusRejected,
		Items: []models.LineItem{
			{MedicineID: "m1", MedicineName: "Paracetamol", Quantity: 4, ReservedQty: 4, Price: 1500},
		},
	}
	orders := newMemOrders(order)
	orders.saveErr = errors.New("connection reset")
	svc := newTestCartService(ledger, orders)

	serr := svc.UpdateLineQuantity(context.Background(), "buyer1", "o1", "m1", 2)

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
	assert.Equal(t, 4, ledger.snapshot("m1").Reserved,
		"the delta hold must be released when the order write fails")
}

func TestUpdateLineQuantity_RejectsClosedOrder(t *testing.T) {
	order := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusConfirmed, PaymentSt: models.PaymentStatusPaid,
		Items: []models.LineItem{
			{MedicineID: "m1", Quantity: 1, Price: 1500},
		},
	}
	svc := newTestCartService(newMemLedger(), newMemOrders(order))

	serr := svc.UpdateLineQuantity(context.Background(), "buyer1", "o1", "m1", 1)

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.Contains(t, serr.Message, "confirmed/paid")
}

func TestCancelOrder_ReleasesHolds(t *testing.T) {
	ledger := newMemLedger(&models.Medicine{ID: "m1", SellerID: "ph1", Name: "Paracetamol", Stock: 10, Reserved: 5})
	order := &models.Order{
		ID: "o1", BuyerID: "buyer1", PharmacyID: "ph1",
		OrderStatus: models.OrderStatusPending, PaymentSt: models.PaymentStatusRejected,
		Items: []models.LineItem{
			{MedicineID: "m1", MedicineName: "Paracetamol", Quantity: 5, ReservedQty: 5, Price: 1500},
		},
	}
	orders := newMemOrders(order)
	svc := newTestCartService(ledger, orders)

	serr := svc.CancelOrder(context.Background(), "buyer1", "o1")

	require.Nil(t, serr)
	assert.Nil(t, orders.get("o1"))
	assert.Equal(t, 0, ledger.snapshot("m1").Reserved)
}
