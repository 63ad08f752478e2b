package repository

import (
	"context"
	"errors"
	"time"

	"medicine-marketplace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BuyerListOptions filters and sorts a buyer's order listing.
type BuyerListOptions struct {
	Search string // matches pharmacy name or item medicine names
	Status string // optional order_status filter
	Sort   string // created_desc (default), created_asc, total_desc, total_asc
}

// OrderRepository persists order aggregates. Save writes the whole document
// including the appended timeline event in a single replace, so audit and
// state can never diverge.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindForBuyer(ctx context.Context, id, buyerID string) (*models.Order, error)
	FindForPharmacy(ctx context.Context, id, pharmacyID string) (*models.Order, error)
	// FindOpen returns the single open order for a buyer/pharmacy pair,
	// or ErrNotFound.
	FindOpen(ctx context.Context, buyerID, pharmacyID string) (*models.Order, error)
	Insert(ctx context.Context, o *models.Order) error
	// Save appends the event to the order's timeline, stamps updated_at and
	// replaces the stored document in one write.
	Save(ctx context.Context, o *models.Order, ev models.TimelineEvent) error
	Delete(ctx context.Context, id string) error

	ListByBuyer(ctx context.Context, buyerID string, opts BuyerListOptions) ([]models.Order, error)
	ListByPharmacy(ctx context.Context, pharmacyID, status, payment string) ([]models.Order, error)
	// ListPendingReview returns a pharmacy's orders awaiting payment
	// verification (or recently rejected), newest activity first.
	ListPendingReview(ctx context.Context, pharmacyID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

var openOrderFilter = bson.M{
	"order_status":   bson.M{"$in": bson.A{models.OrderStatusCart, models.OrderStatusPending}},
	"payment_status": bson.M{"$in": bson.A{models.PaymentStatusUnpaid, models.PaymentStatusRejected}},
}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection("orders")}
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoOrderRepository) FindForBuyer(ctx context.Context, id, buyerID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "buyer_id": buyerID})
}

func (r *MongoOrderRepository) FindForPharmacy(ctx context.Context, id, pharmacyID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "pharmacy_id": pharmacyID})
}

func (r *MongoOrderRepository) FindOpen(ctx context.Context, buyerID, pharmacyID string) (*models.Order, error) {
	filter := bson.M{"buyer_id": buyerID, "pharmacy_id": pharmacyID}
	for k, v := range openOrderFilter {
		filter[k] = v
	}
	return r.findOne(ctx, filter)
}

func (r *MongoOrderRepository) Insert(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, o)
	return err
}

func (r *MongoOrderRepository) Save(ctx context.Context, o *models.Order, ev models.TimelineEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	o.Timeline = append(o.Timeline, ev)
	o.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) ListByBuyer(ctx context.Context, buyerID string, opts BuyerListOptions) ([]models.Order, error) {
	filter := bson.M{"buyer_id": buyerID}
	if opts.Status != "" {
		filter["order_status"] = opts.Status
	}
	if opts.Search != "" {
		regex := bson.M{"$regex": opts.Search, "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"pharmacy_name": regex},
			bson.M{"items.medicine_name": regex},
		}
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	switch opts.Sort {
	case "created_asc":
		sort = bson.D{{Key: "created_at", Value: 1}}
	case "total_desc":
		sort = bson.D{{Key: "total_amount", Value: -1}, {Key: "created_at", Value: -1}}
	case "total_asc":
		sort = bson.D{{Key: "total_amount", Value: 1}, {Key: "created_at", Value: -1}}
	}
	return r.find(ctx, filter, options.Find().SetSort(sort))
}

func (r *MongoOrderRepository) ListByPharmacy(ctx context.Context, pharmacyID, status, payment string) ([]models.Order, error) {
	filter := bson.M{"pharmacy_id": pharmacyID}
	if status != "" {
		filter["order_status"] = status
	}
	if payment != "" {
		filter["payment_status"] = payment
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *MongoOrderRepository) ListPendingReview(ctx context.Context, pharmacyID string) ([]models.Order, error) {
	filter := bson.M{
		"pharmacy_id":    pharmacyID,
		"payment_status": bson.M{"$in": bson.A{models.PaymentStatusProofUploaded, models.PaymentStatusRejected}},
		"order_status":   models.OrderStatusPending,
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

func (r *MongoOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	err := r.collection.FindOne(ctx, filter).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
