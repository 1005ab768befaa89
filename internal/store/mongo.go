package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/murmurapp/murmur-backend/internal/models"
)

const usersCollection = "users"

// Mongo implements UserStore on a MongoDB database handle.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (s *Mongo) users() *mongo.Collection {
	return s.db.Collection(usersCollection)
}

// EnsureIndexes creates the unique username/email indexes. Called once at
// startup.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

func (s *Mongo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Mongo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Mongo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
}

func (s *Mongo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": identifier},
	}})
}

func (s *Mongo) FindVerifiedByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username, "is_verified": true})
}

func (s *Mongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Mongo) Insert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := s.users().InsertOne(ctx, user)
	return err
}

func (s *Mongo) Replace(ctx context.Context, id primitive.ObjectID, user *models.User) error {
	user.ID = id
	result, err := s.users().ReplaceOne(ctx, bson.M{"_id": id}, user)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_verified": true, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) SetAcceptingMessages(ctx context.Context, id primitive.ObjectID, accepting bool) (bool, error) {
	result, err := s.users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_accepting_messages": accepting, "updated_at": time.Now()},
	})
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return accepting, nil
}

func (s *Mongo) AppendMessage(ctx context.Context, ownerID primitive.ObjectID, msg models.Message) error {
	result, err := s.users().UpdateOne(ctx, bson.M{"_id": ownerID}, bson.M{
		"$push": bson.M{"messages": msg},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) RemoveMessage(ctx context.Context, ownerID, messageID primitive.ObjectID) (bool, error) {
	result, err := s.users().UpdateOne(ctx, bson.M{"_id": ownerID}, bson.M{
		"$pull": bson.M{"messages": bson.M{"_id": messageID}},
	})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (s *Mongo) MessagesNewestFirst(ctx context.Context, ownerID primitive.ObjectID) ([]models.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": ownerID}}},
		{{Key: "$unwind", Value: "$messages"}},
		{{Key: "$sort", Value: bson.M{"messages.created_at": -1}}},
		{{Key: "$group", Value: bson.M{"_id": "$_id", "messages": bson.M{"$push": "$messages"}}}},
	}

	cursor, err := s.users().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Messages []models.Message `bson:"messages"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	// $unwind drops accounts with an empty messages array; that is a
	// success with no messages, not a missing account.
	if len(results) == 0 {
		return []models.Message{}, nil
	}
	return results[0].Messages, nil
}
