package controllers

import (
	"net/http"

	"medicine-marketplace/middleware"
	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// MedicineController covers the catalog: buyer browsing and the seller's
// inventory management.
type MedicineController struct {
	medicines *services.MedicineService
}

func NewMedicineController(medicines *services.MedicineService) *MedicineController {
	return &MedicineController{medicines: medicines}
}

// Browse lists medicines with available stock across all pharmacies.
// GET /medicines
func (mc *MedicineController) Browse(c *gin.Context) {
	meds, serr := mc.medicines.BrowseAvailable(c.Request.Context())
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": meds})
}

// Create adds a new medicine to the seller's catalog.
// POST /pharmacy/medicines
func (mc *MedicineController) Create(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	med, serr := mc.medicines.Create(c.Request.Context(), actor.ID, req)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"medicine": med})
}

// Inventory lists the seller's own catalog including reserved counts.
// GET /pharmacy/medicines
func (mc *MedicineController) Inventory(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	meds, serr := mc.medicines.SellerInventory(c.Request.Context(), actor.ID)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": meds})
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// Restock adjusts physical stock by a signed quantity.
// POST /pharmacy/medicines/:medicineId/restock
func (mc *MedicineController) Restock(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Quantity is required"})
		return
	}

	if serr := mc.medicines.Restock(c.Request.Context(), actor.ID, c.Param("medicineId"), req.Quantity); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated"})
}

// Update edits the descriptive fields of a medicine. Stock counters are
// never settable here, only through restock and the order flow.
// PATCH /pharmacy/medicines/:medicineId
func (mc *MedicineController) Update(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request body"})
		return
	}
	updates := bson.M{}
	for k, v := range body {
		updates[k] = v
	}

	if serr := mc.medicines.UpdateDetails(c.Request.Context(), actor.ID, c.Param("medicineId"), updates); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medicine updated"})
}
