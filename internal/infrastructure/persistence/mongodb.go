package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"fare-crawler-service/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoClient creates a new MongoDB client
func NewMongoClient(ctx context.Context, uri, username, password string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)

	if username != "" && password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: username,
			Password: password,
		})
	}

	// Set connection timeout
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping to check connection
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

// MongoManager owns a lazily connected MongoDB client.
// Close drops the connection and the next Database call reconnects.
type MongoManager struct {
	mu       sync.Mutex
	uri      string
	username string
	password string
	dbName   string
	client   *mongo.Client
	logger   logger.Logger
}

// NewMongoManager creates a manager; no connection is made until first use
func NewMongoManager(uri, username, password, dbName string, log logger.Logger) *MongoManager {
	return &MongoManager{
		uri:      uri,
		username: username,
		password: password,
		dbName:   dbName,
		logger:   log.With("component", "mongo"),
	}
}

// Database returns the configured database, connecting if needed
func (m *MongoManager) Database(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		client, err := NewMongoClient(ctx, m.uri, m.username, m.password)
		if err != nil {
			return nil, err
		}
		m.client = client
		m.logger.Info("Connected to MongoDB", "database", m.dbName)
	}

	return m.client.Database(m.dbName), nil
}

// Close disconnects the client if one is open
func (m *MongoManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	m.client = nil
	if err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	m.logger.Info("Disconnected from MongoDB")
	return nil
}
