package services

import (
	"bytes"
	"context"
	"fmt"

	"medicine-marketplace/models"
	"medicine-marketplace/storage"

	qrcode "github.com/skip2/go-qrcode"
)

// VoucherService issues the seller receipt after payment verification: a
// QR image encoding the sale summary, stored next to the order's payment
// proof. This is the pharmacy's proof-of-sale, distinct from the buyer's
// uploaded receipt.
type VoucherService struct {
	receipts storage.ReceiptStore
}

func NewVoucherService(receipts storage.ReceiptStore) *VoucherService {
	return &VoucherService{receipts: receipts}
}

func (s *VoucherService) Generate(ctx context.Context, order *models.Order) (string, error) {
	content := fmt.Sprintf("order:%s|pharmacy:%s|buyer:%s|total:%s|payment:%s",
		order.ID, order.PharmacyID, order.BuyerID,
		models.FormatCurrency(order.TotalAmount), order.Payment.PaymentID)

	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode voucher qr: %w", err)
	}

	path, err := s.receipts.Save(ctx, order.ID, "voucher.png", bytes.NewReader(png))
	if err != nil {
		return "", fmt.Errorf("store voucher: %w", err)
	}
	return path, nil
}
