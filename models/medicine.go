package models

import "time"

// Medicine is a catalog record owned by a pharmacy seller. Stock accounting
// uses two counters: `stock` is the physical count, `reserved` is the soft
// hold taken when a buyer submits an order. Both are mutated only through
// the conditional ledger operations in the medicine repository.
type Medicine struct {
	ID             string     `bson:"_id" json:"id"`
	SellerID       string     `bson:"seller_id" json:"seller_id"`
	Name           string     `bson:"name" json:"name"`
	Description    string     `bson:"description,omitempty" json:"description,omitempty"`
	SellingPrice   float64    `bson:"selling_price" json:"selling_price"`
	BuyingPrice    float64    `bson:"buying_price" json:"buying_price"`
	Stock          int        `bson:"stock" json:"stock"`
	Reserved       int        `bson:"reserved" json:"reserved"`
	ExpirationDate *time.Time `bson:"expiration_date,omitempty" json:"expiration_date,omitempty"`
	ImageFilename  string     `bson:"image_filename,omitempty" json:"image_filename,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
}

// Available is the quantity buyers can still order: stock minus soft holds.
func (m *Medicine) Available() int {
	avail := m.Stock - m.Reserved
	if avail < 0 {
		return 0
	}
	return avail
}

// IsExpired reports whether the medicine is past its expiration date.
// Medicines without an expiration date never expire.
func (m *Medicine) IsExpired(now time.Time) bool {
	return m.ExpirationDate != nil && m.ExpirationDate.Before(now)
}
