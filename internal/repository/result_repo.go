package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialrisk/internal/model"
)

// ResultCollection holds one document per submitted screening.
const ResultCollection = "screening_results"

// ResultRepo handles MongoDB operations for screening submissions
type ResultRepo interface {
	Create(ctx context.Context, submission *model.Submission) error
	GetLatestByPatient(ctx context.Context, patientID string) (*model.Submission, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*model.Submission, error)
}

type resultRepo struct {
	collection *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		collection: db.Collection(ResultCollection),
	}
}

// EnsureResultIndexes creates the patient lookup index.
func EnsureResultIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ResultCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create result index: %w", err)
	}
	return nil
}

func (r *resultRepo) Create(ctx context.Context, submission *model.Submission) error {
	if _, err := r.collection.InsertOne(ctx, submission); err != nil {
		return fmt.Errorf("insert submission %s: %w", submission.ID, err)
	}
	return nil
}

func (r *resultRepo) GetLatestByPatient(ctx context.Context, patientID string) (*model.Submission, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var submission model.Submission
	err := r.collection.FindOne(ctx, bson.M{"patientId": patientID}, opts).Decode(&submission)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *resultRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]*model.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"patientId": patientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	submissions := []*model.Submission{}
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}
