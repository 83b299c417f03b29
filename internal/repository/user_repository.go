package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"concertlog/api/internal/models"
)

const UsersCollection = "users"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Tokens == nil {
		user.Tokens = []models.Token{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByToken returns the user only while token is in its active list.
func (r *UserRepository) FindByToken(ctx context.Context, id primitive.ObjectID, token string) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id, "tokens.token": token})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) AddToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.update(ctx, id, bson.M{
		"$push": bson.M{"tokens": models.Token{Token: token}},
		"$set":  bson.M{"updatedAt": Now()},
	})
}

func (r *UserRepository) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.update(ctx, id, bson.M{
		"$pull": bson.M{"tokens": bson.M{"token": token}},
		"$set":  bson.M{"updatedAt": Now()},
	})
}

func (r *UserRepository) ClearTokens(ctx context.Context, id primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{
		"$set": bson.M{"tokens": []models.Token{}, "updatedAt": Now()},
	})
}

// UpdateProfile writes name, email, password hash and age.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = Now()
	return r.update(ctx, user.ID, bson.M{
		"$set": bson.M{
			"name":      user.Name,
			"email":     user.Email,
			"password":  user.Password,
			"age":       user.Age,
			"updatedAt": user.UpdatedAt,
		},
	})
}

// SetAvatar stores data, or removes the field when data is nil.
func (r *UserRepository) SetAvatar(ctx context.Context, id primitive.ObjectID, data []byte) error {
	update := bson.M{"$set": bson.M{"avatar": data, "updatedAt": Now()}}
	if data == nil {
		update = bson.M{
			"$unset": bson.M{"avatar": ""},
			"$set":   bson.M{"updatedAt": Now()},
		}
	}
	return r.update(ctx, id, update)
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Now is the timestamp written to createdAt/updatedAt, truncated to the
// millisecond precision BSON dates keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
