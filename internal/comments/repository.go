package comments

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// Repository defines persistence operations for comments. ByParent and
// KeysByParent are the secondary-index queries on the parent field;
// DeleteByParent backs the cascade when a commentable entity is deleted.
type Repository interface {
	Insert(ctx context.Context, c *models.Comment) error
	Get(ctx context.Context, key string) (*models.Comment, error)
	ByParent(ctx context.Context, parent string) ([]*models.Comment, error)
	KeysByParent(ctx context.Context, parent string) ([]string, error)
	Delete(ctx context.Context, key string) error
	DeleteByParent(ctx context.Context, parent string) (int64, error)
}

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	keyIdx := mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), keyIdx)
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "parent", Value: 1}}})
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, c *models.Comment) error {
	if c.Key == "" {
		c.Key = primitive.NewObjectID().Hex()
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, key string) (*models.Comment, error) {
	var c models.Comment
	if err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ByParent returns comments under a parent sorted by date ascending, the
// order they are rendered in expanded views.
func (r *MongoRepository) ByParent(ctx context.Context, parent string) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"parent": parent}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Comment{}
	for cur.Next(ctx) {
		var c models.Comment
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (r *MongoRepository) KeysByParent(ctx context.Context, parent string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"key": 1})
	cur, err := r.col.Find(ctx, bson.M{"parent": parent}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	keys := []string{}
	for cur.Next(ctx) {
		var c struct {
			Key string `bson:"key"`
		}
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		keys = append(keys, c.Key)
	}
	return keys, cur.Err()
}

func (r *MongoRepository) Delete(ctx context.Context, key string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByParent(ctx context.Context, parent string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"parent": parent})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MemoryRepo is an in-memory Repository used by unit tests and as the
// storage fallback when MongoDB is unavailable.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*models.Comment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*models.Comment)}
}

func (m *MemoryRepo) Insert(ctx context.Context, c *models.Comment) error {
	if c.Key == "" {
		c.Key = primitive.NewObjectID().Hex()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.Key] = &cp
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, key string) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.store[key]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *MemoryRepo) ByParent(ctx context.Context, parent string) ([]*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Comment{}
	for _, c := range m.store {
		if c.Parent == parent {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// KeysByParent returns keys in a sorted order. The Mongo implementation
// yields index order instead; callers must not rely on either.
func (m *MemoryRepo) KeysByParent(ctx context.Context, parent string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := []string{}
	for _, c := range m.store {
		if c.Parent == parent {
			keys = append(keys, c.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[key]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.store, key)
	return nil
}

func (m *MemoryRepo) DeleteByParent(ctx context.Context, parent string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, c := range m.store {
		if c.Parent == parent {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}
