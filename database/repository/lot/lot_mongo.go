// File: database/repository/lot/lot_mongo.go
package lotRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"parkwise/database"
	"parkwise/models"
)

type mongoLotRepo struct {
	coll *mongo.Collection
}

// NewMongoLotRepo returns a LotRepository backed by the lots collection.
func NewMongoLotRepo() LotRepository {
	coll := database.MongoClient.Database(database.DBName).Collection("lots")
	return &mongoLotRepo{coll: coll}
}

func (r *mongoLotRepo) GetByID(ctx context.Context, id string) (*models.Lot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var lot models.Lot
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&lot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lot %s: %w", id, err)
	}
	return &lot, nil
}

func (r *mongoLotRepo) GetAll(ctx context.Context) ([]models.Lot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer cursor.Close(ctx)

	var lots []models.Lot
	if err := cursor.All(ctx, &lots); err != nil {
		return nil, fmt.Errorf("failed to decode lots: %w", err)
	}
	return lots, nil
}

func (r *mongoLotRepo) Create(ctx context.Context, lot *models.Lot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	lot.CreatedAt = now
	lot.UpdatedAt = now
	if lot.Slots == nil {
		lot.Slots = make(map[string]*models.Slot)
	}
	lot.RecountAvailable(now)
	if _, err := r.coll.InsertOne(ctx, lot); err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

// ReplaceVersioned performs the compare-and-swap write: the filter matches
// on both id and the version read by the caller, so a concurrent writer
// that got there first makes this a no-op and the caller must re-read.
func (r *mongoLotRepo) ReplaceVersioned(ctx context.Context, lot *models.Lot, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lot.Version = expectedVersion + 1
	lot.UpdatedAt = time.Now()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": lot.ID, "version": expectedVersion}, lot)
	if err != nil {
		lot.Version = expectedVersion
		return fmt.Errorf("failed to replace lot %s: %w", lot.ID, err)
	}
	if res.MatchedCount == 0 {
		lot.Version = expectedVersion
		return ErrVersionConflict
	}
	return nil
}
