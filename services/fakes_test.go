package services

import (
	"context"
	"io"
	"sync"

	"medicine-marketplace/models"
	"medicine-marketplace/repository"
	"medicine-marketplace/storage"

	"go.mongodb.org/mongo-driver/bson"
)

// ---- in-memory medicine ledger ----

// memLedger mirrors the guarded semantics of the Mongo ledger: every
// conditional update checks its guard and mutates under one mutex.
type memLedger struct {
	mu        sync.Mutex
	meds      map[string]*models.Medicine
	commitErr error // forced failure for Commit
}

func newMemLedger(meds ...*models.Medicine) *memLedger {
	l := &memLedger{meds: make(map[string]*models.Medicine)}
	for _, m := range meds {
		l.meds[m.ID] = m
	}
	return l
}

func (l *memLedger) Get(_ context.Context, id string) (*models.Medicine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (l *memLedger) Create(_ context.Context, med *models.Medicine) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *med
	l.meds[med.ID] = &cp
	return nil
}

func (l *memLedger) UpdateFields(_ context.Context, id string, updates bson.M) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meds[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v, ok := updates["name"].(string); ok {
		m.Name = v
	}
	if v, ok := updates["description"].(string); ok {
		m.Description = v
	}
	return nil
}

func (l *memLedger) AddStock(_ context.Context, id string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meds[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.Stock+qty < m.Reserved {
		return repository.ErrInsufficientStock
	}
	m.Stock += qty
	return nil
}

func (l *memLedger) ListAvailable(_ context.Context) ([]models.Medicine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Medicine
	for _, m := range l.meds {
		if m.Available() > 0 {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (l *memLedger) ListBySeller(_ context.Context, sellerID string) ([]models.Medicine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Medicine
	for _, m := range l.meds {
		if m.SellerID == sellerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (l *memLedger) Reserve(_ context.Context, id string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meds[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.Stock-m.Reserved < qty {
		return repository.ErrInsufficientStock
	}
	m.Reserved += qty
	return nil
}

func (l *memLedger) Release(_ context.Context, id string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meds[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.Reserved < qty {
		return repository.ErrReleaseExceedsReserved
	}
	m.Reserved -= qty
	return nil
}

func (l *memLedger) Commit(_ context.Context, id string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.commitErr != nil {
		return l.commitErr
	}
	m, ok := l.meds[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.Reserved < qty {
		return repository.ErrReleaseExceedsReserved
	}
	m.Reserved -= qty
	m.Stock -= qty
	return nil
}

func (l *memLedger) setSellingPrice(id string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.meds[id].SellingPrice = price
}

func (l *memLedger) snapshot(id string) models.Medicine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.meds[id]
}

// ---- in-memory order store ----

type memOrders struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	saveErr error // forced failure for Save
}

func newMemOrders(orders ...*models.Order) *memOrders {
	s := &memOrders{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

// cloneOrder deep-copies the slices a caller may mutate in place, so the
// fake's stored documents stay independent like Mongo's decoded ones.
func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.LineItem(nil), o.Items...)
	cp.Timeline = append([]models.TimelineEvent(nil), o.Timeline...)
	return &cp
}

func (s *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *memOrders) FindForBuyer(ctx context.Context, id, buyerID string) (*models.Order, error) {
	o, err := s.FindByID(ctx, id)
	if err != nil || o.BuyerID != buyerID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (s *memOrders) FindForPharmacy(ctx context.Context, id, pharmacyID string) (*models.Order, error) {
	o, err := s.FindByID(ctx, id)
	if err != nil || o.PharmacyID != pharmacyID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (s *memOrders) FindOpen(_ context.Context, buyerID, pharmacyID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.BuyerID == buyerID && o.PharmacyID == pharmacyID && o.IsOpen() {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memOrders) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *memOrders) Save(_ context.Context, o *models.Order, ev models.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	o.Timeline = append(o.Timeline, ev)
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *memOrders) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *memOrders) ListByBuyer(_ context.Context, buyerID string, _ repository.BuyerListOptions) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memOrders) ListByPharmacy(_ context.Context, pharmacyID, status, payment string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.PharmacyID != pharmacyID {
			continue
		}
		if status != "" && string(o.OrderStatus) != status {
			continue
		}
		if payment != "" && string(o.PaymentSt) != payment {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *memOrders) ListPendingReview(_ context.Context, pharmacyID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.PharmacyID != pharmacyID || o.OrderStatus != models.OrderStatusPending {
			continue
		}
		if o.PaymentSt == models.PaymentStatusProofUploaded || o.PaymentSt == models.PaymentStatusRejected {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memOrders) ListAll(_ context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *memOrders) get(id string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

// ---- other fakes ----

type fakePharmacies struct{ name string }

func (f *fakePharmacies) DisplayName(_ context.Context, _ string) string {
	if f.name == "" {
		return "Unknown Pharmacy"
	}
	return f.name
}

type recordedNotification struct {
	UserID  string
	Role    string
	Type    string
	OrderID string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID, role, typ, _, _, orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedNotification{UserID: userID, Role: role, Type: typ, OrderID: orderID})
}

type fakeReceipts struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (f *fakeReceipts) Save(_ context.Context, orderID, filename string, _ io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := storage.CheckExtension(filename); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "/static/receipts/" + orderID + "/" + filename
	f.saved = append(f.saved, path)
	return path, nil
}

type fakeVouchers struct {
	err   error
	calls int
}

func (f *fakeVouchers) Generate(_ context.Context, order *models.Order) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "/static/receipts/" + order.ID + "/voucher.png", nil
}
