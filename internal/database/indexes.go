package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection     = "users"
	CustomersCollection = "customers"
)

func EnsureUserIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	indexes := db.Collection(UsersCollection).Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	logger.Debug("creating index", zap.String("collection", UsersCollection), zap.String("index", "email_unique"))
	if _, err := indexes.CreateOne(ctx, emailIndex); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	return nil
}

func EnsureCustomerIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	indexes := db.Collection(CustomersCollection).Indexes()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignedTo", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("assignedTo_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_index"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	}

	names, err := indexes.CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("customers indexes: %w", err)
	}
	logger.Debug("customer indexes ensured", zap.Strings("indexes", names))
	return nil
}
