// Package passage persists résumé passages in the vector store and runs
// nearest-neighbor queries over them.
package passage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anoguera/cvassist/internal/db"
	"github.com/anoguera/cvassist/internal/domain"
)

// store is the consumer interface for passage storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the vector index contract for passages.
type Repo struct {
	store      store
	keyPrefix  string
	collection string
}

// New creates a passage repository over one logical collection.
func New(s store, keyPrefix, collection string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, collection: collection}
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection)
}

func (r *Repo) passageKey(id string) string {
	return fmt.Sprintf("%s%s:%s", r.keyPrefix, r.collection, id)
}

func (r *Repo) manifestKey() string {
	return fmt.Sprintf("%s%s:manifest", r.keyPrefix, r.collection)
}

// EnsureIndex creates the FT index for this collection if it does not
// exist yet. The vector dimensionality is fixed for the collection's
// lifetime; mixing dimensionalities corrupts nearest-neighbor geometry.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName(), wrapIndexErr(err))
	}
	if exists {
		return nil
	}
	return r.createIndex(ctx, dim)
}

// RecreateIndex drops and recreates the FT index, for schema changes
// such as a new vector dimensionality. Passage hashes survive the drop;
// the fresh index reindexes them by key prefix.
func (r *Repo) RecreateIndex(ctx context.Context, dim int) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.indexName(), wrapIndexErr(err))
	}
	return r.createIndex(ctx, dim)
}

func (r *Repo) createIndex(ctx context.Context, dim int) error {
	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)},
		Fields: []db.IndexField{
			{Name: "section", Type: db.IndexFieldTag},
			{Name: "__text", Type: db.IndexFieldText},
			{
				Name:           "__vector",
				Alias:          "vector", // KNN queries address the field as @vector
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      dim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.indexName(), wrapIndexErr(err))
	}
	return nil
}

// Upsert stores passages as hashes in a single pipelined round-trip.
// Idempotent per id: re-upserting an id overwrites its text and vector.
func (r *Repo) Upsert(ctx context.Context, passages []domain.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(passages))
	for i, p := range passages {
		items[i] = db.HashSetItem{
			Key:    r.passageKey(p.ID),
			Fields: buildHashFields(&p),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d passages: %w", len(passages), wrapIndexErr(err))
	}
	return nil
}

// Delete removes the given passage ids from the collection. Unknown ids
// are a no-op, so deleting an id twice is safe.
func (r *Repo) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := r.store.Del(ctx, r.passageKey(id)); err != nil {
			return fmt.Errorf("delete passage %s: %w", id, wrapIndexErr(err))
		}
	}
	return nil
}

// Query returns up to topK passages nearest to the query vector, ordered
// by descending similarity. An empty collection yields an empty result.
func (r *Repo) Query(ctx context.Context, vector []float32, topK int) (domain.RetrievalResult, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"__text", "section", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.indexName(), wrapIndexErr(err))
	}

	prefix := fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)
	return parseEntries(sr, prefix), nil
}

// WriteManifest records the embedding model behind this collection.
func (r *Repo) WriteManifest(ctx context.Context, m domain.IndexManifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := r.store.Set(ctx, r.manifestKey(), data); err != nil {
		return fmt.Errorf("write manifest: %w", wrapIndexErr(err))
	}
	return nil
}

// ReadManifest loads the collection manifest. Returns
// domain.ErrManifestNotFound for a collection that was never ingested.
func (r *Repo) ReadManifest(ctx context.Context) (domain.IndexManifest, error) {
	data, err := r.store.Get(ctx, r.manifestKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.IndexManifest{}, domain.ErrManifestNotFound
		}
		return domain.IndexManifest{}, fmt.Errorf("read manifest: %w", wrapIndexErr(err))
	}

	var m domain.IndexManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.IndexManifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// wrapIndexErr tags storage failures with the domain sentinel so callers
// can distinguish index errors from the other upstream failure kinds.
func wrapIndexErr(err error) error {
	if errors.Is(err, domain.ErrIndexUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
}
