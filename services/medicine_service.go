package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medicine-marketplace/models"
	"medicine-marketplace/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CreateMedicineRequest is the seller's catalog entry.
type CreateMedicineRequest struct {
	Name           string     `json:"name" binding:"required"`
	Description    string     `json:"description"`
	SellingPrice   float64    `json:"selling_price" binding:"required,gt=0"`
	BuyingPrice    float64    `json:"buying_price" binding:"gte=0"`
	Stock          int        `json:"stock" binding:"gte=0"`
	ExpirationDate *time.Time `json:"expiration_date"`
	ImageFilename  string     `json:"image_filename"`
}

// MedicineView is the buyer-facing catalog projection.
type MedicineView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Available      int    `json:"available"`
	Stock          int    `json:"stock"`
	Reserved       int    `json:"reserved"`
	FormattedPrice string `json:"formatted_price"`
	PharmacyName   string `json:"pharmacy_name"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// MedicineService covers the catalog around the ledger: seller create and
// restock, buyer browsing of available stock.
type MedicineService struct {
	medicines  repository.MedicineRepository
	pharmacies repository.PharmacyRepository
	log        *zap.Logger
}

func NewMedicineService(medicines repository.MedicineRepository, pharmacies repository.PharmacyRepository, log *zap.Logger) *MedicineService {
	return &MedicineService{medicines: medicines, pharmacies: pharmacies, log: log}
}

func (s *MedicineService) Create(ctx context.Context, sellerID string, req CreateMedicineRequest) (*models.Medicine, *ServiceError) {
	med := &models.Medicine{
		ID:             uuid.NewString(),
		SellerID:       sellerID,
		Name:           req.Name,
		Description:    req.Description,
		SellingPrice:   req.SellingPrice,
		BuyingPrice:    req.BuyingPrice,
		Stock:          req.Stock,
		ExpirationDate: req.ExpirationDate,
		ImageFilename:  req.ImageFilename,
	}
	if err := s.medicines.Create(ctx, med); err != nil {
		s.log.Error("medicine create failed", zap.String("seller_id", sellerID), zap.Error(err))
		return nil, newError(http.StatusInternalServerError, "Failed to create medicine")
	}
	return med, nil
}

// Restock adjusts physical stock through the guarded ledger update so a
// negative correction can never undercut held reservations.
func (s *MedicineService) Restock(ctx context.Context, sellerID, medicineID string, qty int) *ServiceError {
	if qty == 0 {
		return newError(http.StatusUnprocessableEntity, "Quantity must be non-zero")
	}
	med, serr := s.ownedMedicine(ctx, sellerID, medicineID)
	if serr != nil {
		return serr
	}
	if err := s.medicines.AddStock(ctx, med.ID, qty); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return newError(http.StatusConflict,
				"Cannot reduce stock below the %d units currently reserved", med.Reserved)
		}
		s.log.Error("restock failed", zap.String("medicine_id", medicineID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to update stock")
	}
	return nil
}

// UpdateDetails edits catalog fields. Stock and reserved are deliberately
// not settable here; they only ever move through the ledger.
func (s *MedicineService) UpdateDetails(ctx context.Context, sellerID, medicineID string, updates bson.M) *ServiceError {
	med, serr := s.ownedMedicine(ctx, sellerID, medicineID)
	if serr != nil {
		return serr
	}
	allowed := bson.M{}
	for _, k := range []string{"name", "description", "selling_price", "buying_price", "expiration_date", "image_filename"} {
		if v, ok := updates[k]; ok {
			allowed[k] = v
		}
	}
	if len(allowed) == 0 {
		return newError(http.StatusUnprocessableEntity, "No updatable fields supplied")
	}
	if err := s.medicines.UpdateFields(ctx, med.ID, allowed); err != nil {
		s.log.Error("medicine update failed", zap.String("medicine_id", medicineID), zap.Error(err))
		return newError(http.StatusInternalServerError, "Failed to update medicine")
	}
	return nil
}

// BrowseAvailable lists in-stock, unexpired medicines for buyers.
func (s *MedicineService) BrowseAvailable(ctx context.Context) ([]MedicineView, *ServiceError) {
	meds, err := s.medicines.ListAvailable(ctx)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch medicines")
	}
	views := make([]MedicineView, 0, len(meds))
	for i := range meds {
		med := &meds[i]
		v := MedicineView{
			ID:             med.ID,
			Name:           med.Name,
			Description:    med.Description,
			Available:      med.Available(),
			Stock:          med.Stock,
			Reserved:       med.Reserved,
			FormattedPrice: models.FormatCurrency(med.SellingPrice),
			PharmacyName:   s.pharmacies.DisplayName(ctx, med.SellerID),
		}
		if med.ExpirationDate != nil {
			v.ExpirationDate = med.ExpirationDate.Format("2006-01-02")
		}
		views = append(views, v)
	}
	return views, nil
}

// SellerInventory lists a seller's own catalog including reserved counts.
func (s *MedicineService) SellerInventory(ctx context.Context, sellerID string) ([]models.Medicine, *ServiceError) {
	meds, err := s.medicines.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch inventory")
	}
	if meds == nil {
		meds = []models.Medicine{}
	}
	return meds, nil
}

func (s *MedicineService) ownedMedicine(ctx context.Context, sellerID, medicineID string) (*models.Medicine, *ServiceError) {
	med, err := s.medicines.Get(ctx, medicineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(http.StatusNotFound, "Medicine not found")
		}
		return nil, newError(http.StatusInternalServerError, "Failed to load medicine")
	}
	if med.SellerID != sellerID {
		return nil, newError(http.StatusNotFound, "Medicine not found")
	}
	return med, nil
}
