package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserRepository is a MongoDB implementation of UserRepository.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a repository over the "users" collection.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Touch(time.Now().UTC())
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findOne(ctx, bson.M{"email": email}, email)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", key, err)
	}
	return &user, nil
}
