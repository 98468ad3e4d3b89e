package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// Verify interface compliance at compile time.
var (
	_ ports.RatingStore  = (*MongoStore)(nil)
	_ ports.AverageStore = (*MongoStore)(nil)
)

// Collection names within the ratings database.
const (
	collRatings  = "ratings"
	collItems    = "items"
	collAverages = "averages"
)

// ratingDoc is the BSON shape of a persisted rating. The composite
// "item:seq" id doubles as the document id.
type ratingDoc struct {
	ID        string    `bson:"_id"`
	ItemID    string    `bson:"itemId"`
	Seq       int       `bson:"seq"`
	Author    string    `bson:"author"`
	Vote      int       `bson:"vote"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// itemDoc carries per-item metadata: the contributor credited for
// received votes and the sequence counter backing rating id assignment.
type itemDoc struct {
	ID          string `bson:"_id"`
	Contributor string `bson:"contributor"`
	NextSeq     int    `bson:"nextSeq"`
}

// averageDoc is the BSON shape of a stored aggregate, keyed by the
// (subject, method) pair.
type averageDoc struct {
	SubjectID   string  `bson:"subjectId"`
	Method      string  `bson:"method"`
	NbVotes     int     `bson:"nbVotes"`
	AverageVote float64 `bson:"averageVote"`
}

// MongoStore persists ratings, item metadata, and stored aggregates in
// MongoDB. It mirrors the semantics of MemoryStore: sequence ids are
// assigned from a per-item atomic counter and are never reused, and
// listing follows sequence order.
type MongoStore struct {
	ratings  *mongo.Collection
	items    *mongo.Collection
	averages *mongo.Collection
}

// NewMongoStore creates a store over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		ratings:  db.Collection(collRatings),
		items:    db.Collection(collItems),
		averages: db.Collection(collAverages),
	}
}

// EnsureIndexes creates the indexes the store's queries rely on. Call it
// once at startup; index creation is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.ratings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "author", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create rating indexes: %w", err)
	}

	_, err = s.averages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subjectId", Value: 1}, {Key: "method", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create average index: %w", err)
	}
	return nil
}

// AddItem registers an item and its contributor, preserving the sequence
// counter of an item that already exists.
func (s *MongoStore) AddItem(ctx context.Context, itemID, contributor string) error {
	_, err := s.items.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: itemID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "contributor", Value: contributor}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to register item %s: %w", itemID, err)
	}
	return nil
}

// nextSeq atomically claims the next sequence number for the item,
// creating the item document when it does not exist yet.
func (s *MongoStore) nextSeq(ctx context.Context, itemID string) (int, error) {
	var item itemDoc
	err := s.items.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: itemID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "nextSeq", Value: 1}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		return 0, fmt.Errorf("failed to claim sequence for %s: %w", itemID, err)
	}
	return item.NextSeq - 1, nil
}

// SaveRating persists a rating. A rating without an id gets one from the
// item's sequence counter; a rating with an id overwrites its document.
func (s *MongoStore) SaveRating(ctx context.Context, rating *domain.Rating) error {
	if rating.ID == "" {
		seq, err := s.nextSeq(ctx, rating.ItemID)
		if err != nil {
			return err
		}
		rating.ID = domain.RatingID(rating.ItemID, seq)
	}

	_, seq, err := domain.ParseRatingID(rating.ID)
	if err != nil {
		return err
	}

	doc := ratingDoc{
		ID:        rating.ID,
		ItemID:    rating.ItemID,
		Seq:       seq,
		Author:    rating.Author,
		Vote:      rating.Vote,
		UpdatedAt: rating.UpdatedAt,
	}
	_, err = s.ratings.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: rating.ID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save rating %s: %w", rating.ID, err)
	}
	return nil
}

// GetRating returns the rating at the given sequence position.
func (s *MongoStore) GetRating(ctx context.Context, itemID string, seq int) (*domain.Rating, error) {
	var doc ratingDoc
	err := s.ratings.FindOne(ctx, bson.D{
		{Key: "itemId", Value: itemID},
		{Key: "seq", Value: seq},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if exists, existsErr := s.itemExists(ctx, itemID); existsErr != nil {
			return nil, existsErr
		} else if !exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRatingNotFound, domain.RatingID(itemID, seq))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) itemExists(ctx context.Context, itemID string) (bool, error) {
	n, err := s.items.CountDocuments(ctx, bson.D{{Key: "_id", Value: itemID}})
	if err != nil {
		return false, fmt.Errorf("failed to look up item %s: %w", itemID, err)
	}
	return n > 0, nil
}

// ListRatings returns the item's ratings sorted by sequence, ascending
// or descending, skipping start records and returning at most count
// (0 means unbounded).
func (s *MongoStore) ListRatings(ctx context.Context, itemID string, start, count int, ascending bool) ([]*domain.Rating, error) {
	order := 1
	if !ascending {
		order = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: order}}).
		SetSkip(int64(start))
	if count > 0 {
		opts.SetLimit(int64(count))
	}

	cursor, err := s.ratings.Find(ctx, bson.D{{Key: "itemId", Value: itemID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for %s: %w", itemID, err)
	}
	defer cursor.Close(ctx)

	var ratings []*domain.Rating
	for cursor.Next(ctx) {
		var doc ratingDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode rating: %w", err)
		}
		ratings = append(ratings, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("rating cursor failed: %w", err)
	}
	return ratings, nil
}

// DeleteRating removes the document with the given composite id. It
// returns false when nothing was deleted.
func (s *MongoStore) DeleteRating(ctx context.Context, ratingID string) (bool, error) {
	res, err := s.ratings.DeleteOne(ctx, bson.D{{Key: "_id", Value: ratingID}})
	if err != nil {
		return false, fmt.Errorf("failed to delete rating %s: %w", ratingID, err)
	}
	return res.DeletedCount > 0, nil
}

// ItemContributor returns the user registered as the item's contributor.
func (s *MongoStore) ItemContributor(ctx context.Context, itemID string) (string, error) {
	var item itemDoc
	err := s.items.FindOne(ctx, bson.D{{Key: "_id", Value: itemID}}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	return item.Contributor, nil
}

// GetAverage returns the stored aggregate for (subject, method).
func (s *MongoStore) GetAverage(ctx context.Context, subjectID, method string) (*domain.AverageRating, error) {
	var doc averageDoc
	err := s.averages.FindOne(ctx, bson.D{
		{Key: "subjectId", Value: subjectID},
		{Key: "method", Value: method},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: no %q aggregate for %s", domain.ErrRatingNotFound, method, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load average: %w", err)
	}

	return &domain.AverageRating{
		SubjectID:   doc.SubjectID,
		Method:      doc.Method,
		NbVotes:     doc.NbVotes,
		AverageVote: doc.AverageVote,
	}, nil
}

// SaveAverage creates or overwrites the stored aggregate.
func (s *MongoStore) SaveAverage(ctx context.Context, avg *domain.AverageRating) error {
	doc := averageDoc{
		SubjectID:   avg.SubjectID,
		Method:      avg.Method,
		NbVotes:     avg.NbVotes,
		AverageVote: avg.AverageVote,
	}
	_, err := s.averages.ReplaceOne(ctx,
		bson.D{
			{Key: "subjectId", Value: avg.SubjectID},
			{Key: "method", Value: avg.Method},
		},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save average for %s: %w", avg.SubjectID, err)
	}
	return nil
}

// TotalReputation sums the stored average vote of every user-level
// aggregate under the method. Aggregates whose subject is a known item
// are filtered out through a lookup against the items collection, so
// item averages never inflate the community-wide reputation total.
func (s *MongoStore) TotalReputation(ctx context.Context, method string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "method", Value: method}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collItems},
			{Key: "localField", Value: "subjectId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "item"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "item", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$averageVote"}}},
		}}},
	}

	cursor, err := s.averages.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum reputation: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total float64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode reputation total: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, fmt.Errorf("reputation total cursor failed: %w", err)
	}
	return result.Total, nil
}

func (d *ratingDoc) toDomain() *domain.Rating {
	return &domain.Rating{
		ID:        d.ID,
		ItemID:    d.ItemID,
		Author:    d.Author,
		Vote:      d.Vote,
		UpdatedAt: d.UpdatedAt,
	}
}
