package services

import (
	"context"
	"errors"
	"fmt"

	"medicine-marketplace/models"
	"medicine-marketplace/repository"

	"go.uber.org/zap"
)

// ReserveItem is one medicine/quantity pair in a ledger batch.
type ReserveItem struct {
	MedicineID   string
	MedicineName string
	Quantity     int
}

// StockService wraps the ledger primitives with the multi-item protocols:
// there is no multi-document transaction, so a batch reserve compensates by
// releasing already-held items when a later one fails.
type StockService struct {
	ledger repository.MedicineRepository
	log    *zap.Logger
}

func NewStockService(ledger repository.MedicineRepository, log *zap.Logger) *StockService {
	return &StockService{ledger: ledger, log: log}
}

// ReserveItems reserves each item in turn. On failure it rolls back every
// reservation taken so far and returns an OutOfStockError naming the item
// that could not be held; no order state may have been written yet.
func (s *StockService) ReserveItems(ctx context.Context, items []ReserveItem) error {
	reserved := make([]ReserveItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := s.ledger.Reserve(ctx, item.MedicineID, item.Quantity); err != nil {
			for _, held := range reserved {
				if rerr := s.ledger.Release(ctx, held.MedicineID, held.Quantity); rerr != nil {
					s.log.Error("reservation rollback failed",
						zap.String("medicine_id", held.MedicineID),
						zap.Int("quantity", held.Quantity),
						zap.Error(rerr))
				}
			}
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrNotFound) {
				return &OutOfStockError{
					MedicineID:   item.MedicineID,
					MedicineName: item.MedicineName,
					Requested:    item.Quantity,
				}
			}
			return fmt.Errorf("reserve %s: %w", item.MedicineID, err)
		}
		reserved = append(reserved, item)
	}
	return nil
}

// ReleaseItems drops the holds for every item, continuing past individual
// failures so one bad counter does not strand the rest of the batch.
func (s *StockService) ReleaseItems(ctx context.Context, items []ReserveItem) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := s.ledger.Release(ctx, item.MedicineID, item.Quantity); err != nil {
			s.log.Error("stock release failed",
				zap.String("medicine_id", item.MedicineID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

// CommitItems converts every hold into a permanent deduction. A failure
// here means reservations and commits disagree; the caller must not advance
// the order, and the anomaly is logged for manual reconciliation.
func (s *StockService) CommitItems(ctx context.Context, items []ReserveItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := s.ledger.Commit(ctx, item.MedicineID, item.Quantity); err != nil {
			s.log.Error("stock commit failed, order needs manual reconciliation",
				zap.String("medicine_id", item.MedicineID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			return ErrStockCommitFailed
		}
	}
	return nil
}

// reserveItemsForLines builds the ledger batch for the quantities not yet
// held on each line. Resubmission after a rejection keeps its earlier holds,
// so only the delta is reserved.
func reserveItemsForLines(lines []models.LineItem) []ReserveItem {
	items := make([]ReserveItem, 0, len(lines))
	for _, l := range lines {
		if delta := l.Quantity - l.ReservedQty; delta > 0 {
			items = append(items, ReserveItem{
				MedicineID:   l.MedicineID,
				MedicineName: l.MedicineName,
				Quantity:     delta,
			})
		}
	}
	return items
}

// heldItemsForLines builds the ledger batch for the quantities currently
// reserved on each line.
func heldItemsForLines(lines []models.LineItem) []ReserveItem {
	items := make([]ReserveItem, 0, len(lines))
	for _, l := range lines {
		if l.ReservedQty > 0 {
			items = append(items, ReserveItem{
				MedicineID:   l.MedicineID,
				MedicineName: l.MedicineName,
				Quantity:     l.ReservedQty,
			})
		}
	}
	return items
}
