package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vantage/pkg/errors"
)

const workspaceCollection = "workspaces"

// Mongo persists workspaces in a MongoDB collection. Optimistic locking is
// enforced by including the expected revision in the update filter.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb")
	}
	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(workspaceCollection),
	}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Create(ctx context.Context, ws *Workspace) error {
	now := time.Now().UTC()
	ws.Revision = 1
	ws.CreatedAt = now
	ws.UpdatedAt = now

	if _, err := m.coll.InsertOne(ctx, ws); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New(errors.ErrCodeConflict, "workspace %q already exists", ws.ID)
		}
		return errors.Wrap(errors.ErrCodeStore, err, "insert workspace")
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&ws)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeWorkspaceNotFound, "workspace %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load workspace")
	}
	return &ws, nil
}

func (m *Mongo) List(ctx context.Context) ([]Workspace, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list workspaces")
	}
	defer cursor.Close(ctx)

	var out []Workspace
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode workspaces")
	}
	return out, nil
}

func (m *Mongo) Update(ctx context.Context, ws *Workspace) error {
	expected := ws.Revision
	ws.Revision++
	ws.UpdatedAt = time.Now().UTC()

	res, err := m.coll.ReplaceOne(ctx, bson.M{"_id": ws.ID, "revision": expected}, ws)
	if err != nil {
		ws.Revision = expected
		return errors.Wrap(errors.ErrCodeStore, err, "update workspace")
	}
	if res.MatchedCount == 0 {
		ws.Revision = expected
		// distinguish a missing workspace from a revision mismatch
		if count, err := m.coll.CountDocuments(ctx, bson.M{"_id": ws.ID}); err == nil && count == 0 {
			return errors.New(errors.ErrCodeWorkspaceNotFound, "workspace %q not found", ws.ID)
		}
		return errors.New(errors.ErrCodeConflict,
			"workspace %q was modified concurrently (expected revision %d)", ws.ID, expected)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete workspace")
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeWorkspaceNotFound, "workspace %q not found", id)
	}
	return nil
}
