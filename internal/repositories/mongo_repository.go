package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository is a MongoDB implementation of Repository.
type MongoRepository[T any, PT models.EntityPtr[T]] struct {
	coll *mongo.Collection
	name string
}

// NewMongoRepository creates a repository over the named collection.
func NewMongoRepository[T any, PT models.EntityPtr[T]](db *mongo.Database, collection string) *MongoRepository[T, PT] {
	return &MongoRepository[T, PT]{
		coll: db.Collection(collection),
		name: resourceName(PT(new(T))),
	}
}

var byCreation = bson.D{{Key: "created_at", Value: 1}}

// GetAll retrieves all documents in creation order.
func (r *MongoRepository[T, PT]) GetAll(ctx context.Context) ([]T, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(byCreation))
	if err != nil {
		return nil, fmt.Errorf("failed to get all %s records: %w", r.name, err)
	}
	items := make([]T, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", r.name, err)
	}
	return items, nil
}

// GetByID retrieves a single document by its ID.
func (r *MongoRepository[T, PT]) GetByID(ctx context.Context, id string) (*T, error) {
	item := new(T)
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound(r.name, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ID %s: %w", r.name, id, err)
	}
	return item, nil
}

// First retrieves the earliest created document.
func (r *MongoRepository[T, PT]) First(ctx context.Context) (*T, error) {
	item := new(T)
	err := r.coll.FindOne(ctx, bson.D{}, options.FindOne().SetSort(byCreation)).Decode(item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound(r.name, "(first)")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first %s: %w", r.name, err)
	}
	return item, nil
}

// Create inserts a new document, assigning its ID and timestamps.
func (r *MongoRepository[T, PT]) Create(ctx context.Context, item *T) error {
	meta := PT(item).Meta()
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	meta.Touch(time.Now().UTC())
	if _, err := r.coll.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.name, err)
	}
	return nil
}

// Update replaces an existing document.
func (r *MongoRepository[T, PT]) Update(ctx context.Context, item *T) error {
	meta := PT(item).Meta()
	meta.Touch(time.Now().UTC())
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": meta.ID}, item)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.name, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(r.name, meta.ID)
	}
	return nil
}

// Delete removes a document by its ID.
func (r *MongoRepository[T, PT]) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.name, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(r.name, id)
	}
	return nil
}

// Collection names of the document store.
const (
	productsCollection        = "products"
	portfolioImagesCollection = "portfolio_images"
	portfolioVideosCollection = "portfolio_videos"
	teamCollection            = "team_members"
	aboutCollection           = "about"
	contactInfoCollection     = "contact_info"
	contactMessagesCollection = "contact_messages"
	usersCollection           = "users"
)

// NewMongoSet wires Mongo repositories for every collection.
func NewMongoSet(db *mongo.Database) *Set {
	return &Set{
		Products:        NewMongoRepository[models.Product](db, productsCollection),
		PortfolioImages: NewMongoRepository[models.PortfolioImage](db, portfolioImagesCollection),
		PortfolioVideos: NewMongoRepository[models.PortfolioVideo](db, portfolioVideosCollection),
		Team:            NewMongoRepository[models.TeamMember](db, teamCollection),
		About:           NewMongoRepository[models.AboutPage](db, aboutCollection),
		ContactInfo:     NewMongoRepository[models.ContactInfo](db, contactInfoCollection),
		ContactMessages: NewMongoRepository[models.ContactMessage](db, contactMessagesCollection),
		Users:           NewMongoUserRepository(db),
	}
}

// MongoIndexes lists the indexes each collection needs: a unique email for
// users, and created_at everywhere for the creation-order listing.
func MongoIndexes() map[string][]mongo.IndexModel {
	byCreated := mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: 1}}}
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for _, name := range []string{
		productsCollection, portfolioImagesCollection, portfolioVideosCollection, teamCollection,
		aboutCollection, contactInfoCollection, contactMessagesCollection,
	} {
		indexes[name] = append(indexes[name], byCreated)
	}
	return indexes
}

// EnsureMongoIndexes creates the indexes of MongoIndexes. Existing indexes
// with the same keys are left alone.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for name, idx := range MongoIndexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
