// Package storage persists payment proofs and seller receipts. The default
// backend is local disk under static/receipts; an S3 backend can be swapped
// in through config without touching the order flow.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedFileType is returned before anything is written when the
// upload's extension is not on the whitelist.
var ErrUnsupportedFileType = errors.New("only JPG, PNG and PDF files are allowed")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// ReceiptStore saves an uploaded file under an order's folder and returns
// the path recorded on the order document.
type ReceiptStore interface {
	Save(ctx context.Context, orderID, filename string, r io.Reader) (string, error)
}

// CheckExtension validates an upload filename against the whitelist.
func CheckExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedFileType
	}
	return ext, nil
}

// DiskReceiptStore writes receipts under <root>/receipts/<order_id>/ and
// returns web paths below /static.
type DiskReceiptStore struct {
	root string
}

func NewDiskReceiptStore(root string) *DiskReceiptStore {
	return &DiskReceiptStore{root: root}
}

func (s *DiskReceiptStore) Save(ctx context.Context, orderID, filename string, r io.Reader) (string, error) {
	ext, err := CheckExtension(filename)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, "receipts", orderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return fmt.Sprintf("/static/receipts/%s/%s", orderID, name), nil
}
