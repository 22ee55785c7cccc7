package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crm/internal/database"
	"crm/internal/models"
	"crm/internal/store"
)

type CustomerStore struct {
	coll *mongo.Collection
}

var _ store.CustomerStore = (*CustomerStore)(nil)

func NewCustomerStore(db *mongo.Database) *CustomerStore {
	return &CustomerStore{coll: db.Collection(database.CustomersCollection)}
}

func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer) error {
	if customer.AssignedTo == nil {
		customer.AssignedTo = []primitive.ObjectID{}
	}

	res, err := s.coll.InsertOne(ctx, customer)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		customer.ID = id
	}
	return nil
}

func (s *CustomerStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return &customer, nil
}

func (s *CustomerStore) Find(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Skip > 0 {
		opts.SetSkip(filter.Skip)
	}
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := s.coll.Find(ctx, matchQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer cursor.Close(ctx)

	customers := make([]models.Customer, 0)
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("decode customers: %w", err)
	}
	return customers, nil
}

func (s *CustomerStore) Update(ctx context.Context, id primitive.ObjectID, update models.CustomerUpdate, updatedAt time.Time) (*models.Customer, error) {
	var updated models.Customer
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": setDocument(update, updatedAt)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return &updated, nil
}

func (s *CustomerStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *CustomerStore) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	total, err := s.coll.CountDocuments(ctx, matchQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return total, nil
}

func (s *CustomerStore) CountByStatus(ctx context.Context, filter models.CustomerFilter) ([]models.StatusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: matchQuery(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate customers: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make([]models.StatusCount, 0, len(models.Statuses))
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("decode status counts: %w", err)
	}
	models.SortStatusCounts(counts)
	return counts, nil
}

// matchQuery renders the status and assignee parts of f. Matching a scalar
// against the assignedTo array selects documents whose array contains it.
func matchQuery(f models.CustomerFilter) bson.M {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.AssignedTo != nil {
		query["assignedTo"] = *f.AssignedTo
	}
	return query
}

func setDocument(u models.CustomerUpdate, updatedAt time.Time) bson.M {
	set := bson.M{"updatedAt": updatedAt}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Company != nil {
		set["company"] = *u.Company
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.AssignedTo != nil {
		assigned := *u.AssignedTo
		if assigned == nil {
			assigned = []primitive.ObjectID{}
		}
		set["assignedTo"] = assigned
	}
	if u.Notes != nil {
		set["notes"] = *u.Notes
	}
	return set
}
