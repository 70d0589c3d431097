package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/winterarc/backend/models"
)

const (
	usersCollection        = "users"
	sessionsCollection     = "user_sessions"
	habitsCollection       = "habits"
	habitLogsCollection    = "habit_logs"
	chatMessagesCollection = "chat_messages"
)

// MongoStorage is a Storage backed by a MongoDB database.
// It provides an interface to perform CRUD operations on the collections
// holding users, sessions, habits, habit logs and chat messages.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI
// and database name. Sets up indexes as necessary.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	m.client = client
	m.dbName = dbName

	users := m.collection(usersCollection)

	// Every user has a unique email; create-or-fetch by email relies on it.
	emailIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"email": 1, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = users.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return fmt.Errorf("error creating email index: %v", err)
	}

	idIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"id": 1,
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = users.Indexes().CreateOne(ctx, idIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user id index: %v", err)
	}

	userIdIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"user_id": 1,
		},
		Options: options.Index(),
	}

	for _, name := range []string{habitsCollection, habitLogsCollection, chatMessagesCollection, sessionsCollection} {
		_, err = m.collection(name).Indexes().CreateOne(ctx, userIdIndexModel)
		if err != nil {
			return fmt.Errorf("error creating user_id index on %s: %v", name, err)
		}
	}

	// Session resolution looks up by token on every request.
	tokenIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"session_token": 1,
		},
		Options: options.Index(),
	}
	_, err = m.collection(sessionsCollection).Indexes().CreateOne(ctx, tokenIndexModel)
	if err != nil {
		return fmt.Errorf("error creating session_token index: %v", err)
	}

	loggedAtIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "logged_at", Value: -1},
		},
		Options: options.Index(),
	}
	_, err = m.collection(habitLogsCollection).Indexes().CreateOne(ctx, loggedAtIndexModel)
	if err != nil {
		return fmt.Errorf("error creating logged_at index: %v", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
// It should be called when the MongoStorage instance is no longer needed.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %v", err)
	}

	return nil
}

func (m *MongoStorage) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

// AddUser adds a new user document to the 'users' collection.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) error {
	_, err := m.collection(usersCollection).InsertOne(ctx, user)
	return err
}

// FindUserByID finds a user document by its id.
// Returns ErrNotFound if no user matches.
func (m *MongoStorage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"id": id})
}

// FindUserByEmail finds a user document by its email.
// Returns ErrNotFound if no user matches.
func (m *MongoStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoStorage) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	result := m.collection(usersCollection).FindOne(ctx, filter)
	user := &models.User{}
	err := result.Decode(user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserScore persists a recomputed total score and winter title.
func (m *MongoStorage) SetUserScore(ctx context.Context, id string, score int, title string) error {
	return m.updateUser(ctx, id, bson.M{
		"$set": bson.M{
			"total_score":  score,
			"winter_title": title,
		},
	})
}

// SetUserStreak persists updated streak counters and last-active time.
func (m *MongoStorage) SetUserStreak(ctx context.Context, id string, streakDays, longestStreak int, lastActive time.Time) error {
	return m.updateUser(ctx, id, bson.M{
		"$set": bson.M{
			"streak_days":    streakDays,
			"longest_streak": longestStreak,
			"last_active":    lastActive,
		},
	})
}

func (m *MongoStorage) updateUser(ctx context.Context, id string, update bson.M) error {
	result, err := m.collection(usersCollection).UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsersByScore lists up to limit users ordered by total score descending.
// The relative order of users with equal scores is whatever MongoDB returns.
func (m *MongoStorage) ListUsersByScore(ctx context.Context, limit int64) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "total_score", Value: -1}}).
		SetLimit(limit)
	cursor, err := m.collection(usersCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddHabit adds a new habit document to the 'habits' collection.
func (m *MongoStorage) AddHabit(ctx context.Context, habit *models.Habit) error {
	_, err := m.collection(habitsCollection).InsertOne(ctx, habit)
	return err
}

// FindHabitByID finds a habit document by its id.
// Returns ErrNotFound if no habit matches.
func (m *MongoStorage) FindHabitByID(ctx context.Context, id string) (*models.Habit, error) {
	result := m.collection(habitsCollection).FindOne(ctx, bson.M{"id": id})
	habit := &models.Habit{}
	err := result.Decode(habit)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// ListHabits lists all habits belonging to a user.
func (m *MongoStorage) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	cursor, err := m.collection(habitsCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	habits := []models.Habit{}
	if err := cursor.All(ctx, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// DeleteHabit deletes a habit document by its id.
// Returns ErrNotFound if nothing was deleted. Habit logs referencing the
// habit are intentionally left in place.
func (m *MongoStorage) DeleteHabit(ctx context.Context, id string) error {
	result, err := m.collection(habitsCollection).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddHabitLog adds a new habit log document to the 'habit_logs' collection.
func (m *MongoStorage) AddHabitLog(ctx context.Context, log *models.HabitLog) error {
	_, err := m.collection(habitLogsCollection).InsertOne(ctx, log)
	return err
}

// ListHabitLogs lists up to limit habit logs for a user, newest first.
func (m *MongoStorage) ListHabitLogs(ctx context.Context, userID string, limit int64) ([]models.HabitLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "logged_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := m.collection(habitLogsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []models.HabitLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// CountHabitLogs counts all habit logs for a user.
func (m *MongoStorage) CountHabitLogs(ctx context.Context, userID string) (int64, error) {
	return m.collection(habitLogsCollection).CountDocuments(ctx, bson.M{"user_id": userID})
}

// CountHabitLogsSince counts habit logs for a user logged at or after the
// given instant.
func (m *MongoStorage) CountHabitLogsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return m.collection(habitLogsCollection).CountDocuments(ctx, bson.M{
		"user_id":   userID,
		"logged_at": bson.M{"$gte": since},
	})
}

// AddChatMessage adds a new chat message document to the 'chat_messages' collection.
func (m *MongoStorage) AddChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	_, err := m.collection(chatMessagesCollection).InsertOne(ctx, msg)
	return err
}

// ListChatMessages lists up to limit chat messages for a user, newest first.
func (m *MongoStorage) ListChatMessages(ctx context.Context, userID string, limit int64) ([]models.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)
	cursor, err := m.collection(chatMessagesCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// AddSession adds a new session document to the 'user_sessions' collection.
func (m *MongoStorage) AddSession(ctx context.Context, session *models.Session) error {
	_, err := m.collection(sessionsCollection).InsertOne(ctx, session)
	return err
}

// FindSessionByToken finds a session whose token matches and whose expiry is
// strictly after now. Expired sessions are filtered in the query, not deleted.
// Returns ErrNotFound for unknown or expired tokens.
func (m *MongoStorage) FindSessionByToken(ctx context.Context, token string, now time.Time) (*models.Session, error) {
	result := m.collection(sessionsCollection).FindOne(ctx, bson.M{
		"session_token": token,
		"expires_at":    bson.M{"$gt": now},
	})
	session := &models.Session{}
	err := result.Decode(session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSessionsByUser deletes all sessions belonging to a user.
func (m *MongoStorage) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := m.collection(sessionsCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// DeleteSessionByToken deletes the session with the given token.
// No-op if the token is unknown.
func (m *MongoStorage) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := m.collection(sessionsCollection).DeleteOne(ctx, bson.M{"session_token": token})
	return err
}

// DeleteExpiredSessions deletes every session whose expiry is at or before
// now and returns the number of sessions removed.
func (m *MongoStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := m.collection(sessionsCollection).DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
