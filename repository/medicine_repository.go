package repository

import (
	"context"
	"errors"
	"time"

	"medicine-marketplace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MedicineRepository is catalog access plus the stock ledger: the three
// conditional primitives that keep `0 <= reserved <= stock` under
// concurrent access without any application-level lock.
type MedicineRepository interface {
	Get(ctx context.Context, id string) (*models.Medicine, error)
	Create(ctx context.Context, med *models.Medicine) error
	UpdateFields(ctx context.Context, id string, updates bson.M) error
	AddStock(ctx context.Context, id string, qty int) error
	ListAvailable(ctx context.Context) ([]models.Medicine, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Medicine, error)

	// Reserve increments `reserved` by qty only if stock - reserved >= qty
	// holds at the moment of update. Fails with ErrInsufficientStock.
	Reserve(ctx context.Context, id string, qty int) error
	// Release decrements `reserved` by qty, guarded against underflow.
	Release(ctx context.Context, id string, qty int) error
	// Commit converts a reservation into a permanent deduction: both
	// `stock` and `reserved` drop by qty, guarded by reserved >= qty.
	Commit(ctx context.Context, id string, qty int) error
}

// MongoMedicineRepository implements MedicineRepository on the medicines
// collection. The ledger operations are single UpdateOne calls whose filter
// carries the guard, so the test and the increment are one atomic step.
type MongoMedicineRepository struct {
	collection *mongo.Collection
}

func NewMongoMedicineRepository(db *mongo.Database) *MongoMedicineRepository {
	return &MongoMedicineRepository{collection: db.Collection("medicines")}
}

func (r *MongoMedicineRepository) Get(ctx context.Context, id string) (*models.Medicine, error) {
	var med models.Medicine
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&med)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &med, nil
}

func (r *MongoMedicineRepository) Create(ctx context.Context, med *models.Medicine) error {
	now := time.Now().UTC()
	med.CreatedAt = now
	med.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, med)
	return err
}

func (r *MongoMedicineRepository) UpdateFields(ctx context.Context, id string, updates bson.M) error {
	updates["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStock restocks a medicine. Negative qty is allowed for corrections but
// is guarded so stock never drops below the held reservations.
func (r *MongoMedicineRepository) AddStock(ctx context.Context, id string, qty int) error {
	filter := bson.M{"_id": id}
	if qty < 0 {
		filter["$expr"] = bson.M{"$gte": bson.A{
			bson.M{"$add": bson.A{"$stock", qty}},
			bson.M{"$ifNull": bson.A{"$reserved", 0}},
		}}
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, id, ErrInsufficientStock)
	}
	return nil
}

func (r *MongoMedicineRepository) ListAvailable(ctx context.Context) ([]models.Medicine, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"$expr": bson.M{"$gt": bson.A{
			bson.M{"$subtract": bson.A{"$stock", bson.M{"$ifNull": bson.A{"$reserved", 0}}}},
			0,
		}},
		"$or": bson.A{
			bson.M{"expiration_date": bson.M{"$exists": false}},
			bson.M{"expiration_date": bson.M{"$gte": now}},
		},
	}
	return r.find(ctx, filter)
}

func (r *MongoMedicineRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.Medicine, error) {
	return r.find(ctx, bson.M{"seller_id": sellerID})
}

func (r *MongoMedicineRepository) Reserve(ctx context.Context, id string, qty int) error {
	filter := bson.M{
		"_id": id,
		"$expr": bson.M{"$gte": bson.A{
			bson.M{"$subtract": bson.A{"$stock", bson.M{"$ifNull": bson.A{"$reserved", 0}}}},
			qty,
		}},
	}
	update := bson.M{
		"$inc": bson.M{"reserved": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, id, ErrInsufficientStock)
	}
	return nil
}

func (r *MongoMedicineRepository) Release(ctx context.Context, id string, qty int) error {
	filter := bson.M{"_id": id, "reserved": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"reserved": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, id, ErrReleaseExceedsReserved)
	}
	return nil
}

func (r *MongoMedicineRepository) Commit(ctx context.Context, id string, qty int) error {
	filter := bson.M{"_id": id, "reserved": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"stock": -qty, "reserved": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, id, ErrReleaseExceedsReserved)
	}
	return nil
}

func (r *MongoMedicineRepository) find(ctx context.Context, filter bson.M) ([]models.Medicine, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var meds []models.Medicine
	if err := cursor.All(ctx, &meds); err != nil {
		return nil, err
	}
	return meds, nil
}

// missing disambiguates a failed conditional update: the document either
// does not exist (ErrNotFound) or exists but the guard failed.
func (r *MongoMedicineRepository) missing(ctx context.Context, id string, guardErr error) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return guardErr
}
