package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// PharmacyRepository resolves pharmacy display names for order snapshots.
type PharmacyRepository interface {
	DisplayName(ctx context.Context, sellerID string) string
}

type MongoPharmacyRepository struct {
	collection *mongo.Collection
}

func NewMongoPharmacyRepository(db *mongo.Database) *MongoPharmacyRepository {
	return &MongoPharmacyRepository{collection: db.Collection("pharmacy_profiles")}
}

// DisplayName looks up the pharmacy profile for a seller. Unresolvable
// sellers fall back to "Unknown Pharmacy" rather than failing the request.
func (r *MongoPharmacyRepository) DisplayName(ctx context.Context, sellerID string) string {
	var profile struct {
		PharmacyName string `bson:"pharmacy_name"`
	}
	err := r.collection.FindOne(ctx, bson.M{"user_id": sellerID}).Decode(&profile)
	if err != nil || profile.PharmacyName == "" {
		return "Unknown Pharmacy"
	}
	return profile.PharmacyName
}
