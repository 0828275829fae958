package feed

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

// Repository defines persistence operations for feed items. LiveByParent is
// the parent-index query restricted to unarchived items.
type Repository interface {
	Insert(ctx context.Context, f *models.FeedItem) error
	Get(ctx context.Context, key string) (*models.FeedItem, error)
	LiveByParent(ctx context.Context, parent string) ([]*models.FeedItem, error)
	Update(ctx context.Context, f *models.FeedItem) error
	Delete(ctx context.Context, key string) error
}

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	keyIdx := mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), keyIdx)
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "parent", Value: 1}, {Key: "archived", Value: 1}}})
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, f *models.FeedItem) error {
	if f.Key == "" {
		f.Key = primitive.NewObjectID().Hex()
	}
	_, err := r.col.InsertOne(ctx, f)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, key string) (*models.FeedItem, error) {
	var f models.FeedItem
	if err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&f); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// LiveByParent returns unarchived items under a project sorted by date
// descending, the stable ordering the archive sweep ranks against.
func (r *MongoRepository) LiveByParent(ctx context.Context, parent string) ([]*models.FeedItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"parent": parent, "archived": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.FeedItem{}
	for cur.Next(ctx) {
		var f models.FeedItem
		if err := cur.Decode(&f); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, cur.Err()
}

func (r *MongoRepository) Update(ctx context.Context, f *models.FeedItem) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"key": f.Key}, f)
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
	store map[string]*models.FeedItem
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*models.FeedItem)}
}

func (m *MemoryRepo) Insert(ctx context.Context, f *models.FeedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Key == "" {
		f.Key = primitive.NewObjectID().Hex()
	}
	cp := *f
	m.store[f.Key] = &cp
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, key string) (*models.FeedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.store[key]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *MemoryRepo) LiveByParent(ctx context.Context, parent string) ([]*models.FeedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.FeedItem{}
	for _, f := range m.store {
		if f.Parent == parent && !f.Archived {
			cp := *f
			out = append(out, &cp)
		}
	}
	sortByDateDesc(out)
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, f *models.FeedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[f.Key]; !ok {
		return apperr.ErrNotFound
	}
	cp := *f
	m.store[f.Key] = &cp
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

func sortByDateDesc(items []*models.FeedItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
}
