package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialrisk/internal/model"
)

// CatalogDocument is the published form of both question catalogs.
type CatalogDocument struct {
	ID          string                   `bson:"_id" json:"id"`
	Version     int                      `bson:"version" json:"version"`
	Gating      []map[string]interface{} `bson:"gating" json:"gating"`
	Detail      []map[string]interface{} `bson:"detail" json:"detail"`
	PublishedAt time.Time                `bson:"publishedAt" json:"publishedAt"`
}

// CatalogRepo handles MongoDB operations for published catalogs
type CatalogRepo interface {
	Publish(ctx context.Context, version int, gating, detail []model.Question) (*CatalogDocument, error)
	Get(ctx context.Context, version int) (*CatalogDocument, error)
}

type catalogRepo struct {
	collection *mongo.Collection
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db *mongo.Database) CatalogRepo {
	return &catalogRepo{
		collection: db.Collection("question_catalogs"),
	}
}

func catalogID(version int) string {
	return fmt.Sprintf("sdoh-v%d", version)
}

// BuildCatalogDocument converts catalogs into their published form.
func BuildCatalogDocument(version int, gating, detail []model.Question, now time.Time) (*CatalogDocument, error) {
	g, err := plainQuestions(gating)
	if err != nil {
		return nil, err
	}
	d, err := plainQuestions(detail)
	if err != nil {
		return nil, err
	}
	return &CatalogDocument{
		ID:          catalogID(version),
		Version:     version,
		Gating:      g,
		Detail:      d,
		PublishedAt: now,
	}, nil
}

// plainQuestions round-trips through JSON so the stored shape matches the API.
func plainQuestions(qs []model.Question) ([]map[string]interface{}, error) {
	data, err := json.Marshal(qs)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return out, nil
}

func (r *catalogRepo) Publish(ctx context.Context, version int, gating, detail []model.Question) (*CatalogDocument, error) {
	doc, err := BuildCatalogDocument(version, gating, detail, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return nil, fmt.Errorf("publish catalog %s: %w", doc.ID, err)
	}
	return doc, nil
}

func (r *catalogRepo) Get(ctx context.Context, version int) (*CatalogDocument, error) {
	var doc CatalogDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": catalogID(version)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
