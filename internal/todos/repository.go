package todos

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

// Repository defines persistence operations for todos. ByParent is the
// parent-index query used by every listing and filter.
type Repository interface {
	Insert(ctx context.Context, t *models.Todo) error
	Get(ctx context.Context, key string) (*models.Todo, error)
	ByParent(ctx context.Context, parent string) ([]*models.Todo, error)
	Update(ctx context.Context, t *models.Todo) error
	Delete(ctx context.Context, key string) error
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

func (r *MongoRepository) Insert(ctx context.Context, t *models.Todo) error {
	if t.Key == "" {
		t.Key = primitive.NewObjectID().Hex()
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, key string) (*models.Todo, error) {
	var t models.Todo
	if err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ByParent returns all todos of a project sorted by date descending.
func (r *MongoRepository) ByParent(ctx context.Context, parent string) ([]*models.Todo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"parent": parent}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Todo{}
	for cur.Next(ctx) {
		var t models.Todo
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, cur.Err()
}

func (r *MongoRepository) Update(ctx context.Context, t *models.Todo) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"key": t.Key}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
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

// MemoryRepo is an in-memory Repository used by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*models.Todo
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*models.Todo)}
}

func cloneTodo(t *models.Todo) *models.Todo {
	cp := *t
	cp.Tags = append([]string(nil), t.Tags...)
	return &cp
}

func (m *MemoryRepo) Insert(ctx context.Context, t *models.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Key == "" {
		t.Key = primitive.NewObjectID().Hex()
	}
	m.store[t.Key] = cloneTodo(t)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, key string) (*models.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.store[key]; ok {
		return cloneTodo(t), nil
	}
	return nil, apperr.ErrNotFound
}

func (m *MemoryRepo) ByParent(ctx context.Context, parent string) ([]*models.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Todo{}
	for _, t := range m.store {
		if t.Parent == parent {
			out = append(out, cloneTodo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, t *models.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[t.Key]; !ok {
		return apperr.ErrNotFound
	}
	m.store[t.Key] = cloneTodo(t)
	return nil
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
