package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"concertlog/api/internal/models"
)

const ConcertsCollection = "concerts"

var ErrConcertNotFound = errors.New("concert not found")

// ConcertRepository scopes every read and write by owner.
type ConcertRepository struct {
	coll *mongo.Collection
}

func NewConcertRepository(db *mongo.Database) *ConcertRepository {
	return &ConcertRepository{coll: db.Collection(ConcertsCollection)}
}

func (r *ConcertRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("owner_created"),
	})
	if err != nil {
		return fmt.Errorf("create concerts index: %w", err)
	}
	return nil
}

func (r *ConcertRepository) Create(ctx context.Context, concert *models.Concert) error {
	now := Now()
	if concert.ID.IsZero() {
		concert.ID = primitive.NewObjectID()
	}
	concert.CreatedAt = now
	concert.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, concert); err != nil {
		return fmt.Errorf("insert concert: %w", err)
	}
	return nil
}

func (r *ConcertRepository) List(ctx context.Context, owner primitive.ObjectID, q models.ConcertQuery) ([]models.Concert, error) {
	filter := bson.M{"owner": owner}
	if q.Venue != "" {
		filter["venue"] = q.Venue
	}

	opts := options.Find()
	if q.SortField != "" {
		dir := 1
		if q.SortDesc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.SortField, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find concerts: %w", err)
	}
	defer cursor.Close(ctx)

	concerts := []models.Concert{}
	if err := cursor.All(ctx, &concerts); err != nil {
		return nil, fmt.Errorf("decode concerts: %w", err)
	}
	return concerts, nil
}

func (r *ConcertRepository) Get(ctx context.Context, id, owner primitive.ObjectID) (models.Concert, error) {
	var concert models.Concert
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&concert)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Concert{}, ErrConcertNotFound
		}
		return models.Concert{}, fmt.Errorf("find concert: %w", err)
	}
	return concert, nil
}

// Update writes the editable fields of concert. The owner in the filter comes
// from the stored record's owner, which callers cannot change.
func (r *ConcertRepository) Update(ctx context.Context, concert *models.Concert) error {
	concert.UpdatedAt = Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": concert.ID, "owner": concert.Owner},
		bson.M{"$set": bson.M{
			"concert":      concert.Concert,
			"venue":        concert.Venue,
			"dateAttended": concert.DateAttended,
			"updatedAt":    concert.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("update concert: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConcertNotFound
	}
	return nil
}

func (r *ConcertRepository) Delete(ctx context.Context, id, owner primitive.ObjectID) (models.Concert, error) {
	var concert models.Concert
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "owner": owner}).Decode(&concert)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Concert{}, ErrConcertNotFound
		}
		return models.Concert{}, fmt.Errorf("delete concert: %w", err)
	}
	return concert, nil
}

func (r *ConcertRepository) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"owner": owner})
	if err != nil {
		return 0, fmt.Errorf("delete concerts by owner: %w", err)
	}
	return res.DeletedCount, nil
}
