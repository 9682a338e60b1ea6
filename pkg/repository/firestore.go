package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	substoreCollection = "substores"
	profileCollection  = "profiles"

	distanceField = "vector_distance"
)

// memoryDoc is the Firestore document layout of a memory record.
// Distance is populated only by vector queries.
type memoryDoc struct {
	ID        string             `firestore:"id"`
	UserID    string             `firestore:"user_id"`
	Text      string             `firestore:"text"`
	Type      string             `firestore:"memory_type"`
	ImageURL  string             `firestore:"image_url,omitempty"`
	Embedding firestore.Vector32 `firestore:"embedding"`
	CreatedAt time.Time          `firestore:"created_at"`
	Distance  float64            `firestore:"vector_distance,omitempty"`
}

func (d *memoryDoc) toModel() *model.Memory {
	return &model.Memory{
		ID:        model.MemoryID(d.ID),
		UserID:    d.UserID,
		Text:      d.Text,
		Type:      model.MemoryType(d.Type),
		ImageURL:  d.ImageURL,
		Embedding: []float32(d.Embedding),
		CreatedAt: d.CreatedAt,
	}
}

type substoreDoc struct {
	Name        string    `firestore:"name"`
	Active      bool      `firestore:"active"`
	ActivatedAt time.Time `firestore:"activated_at"`
}

type profileDoc struct {
	UserID    string    `firestore:"user_id"`
	Content   string    `firestore:"content"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Firestore implements Store using Cloud Firestore vector search
type Firestore struct {
	client     *firestore.Client
	embedder   Embedder
	completer  adapter.Completer
	partitions []string
	profileTTL time.Duration
}

type FirestoreOption func(*Firestore)

// WithCompleter enables LLM-generated user profiles
func WithCompleter(completer adapter.Completer) FirestoreOption {
	return func(f *Firestore) {
		f.completer = completer
	}
}

// WithProfileTTL sets how long a cached profile stays fresh
func WithProfileTTL(ttl time.Duration) FirestoreOption {
	return func(f *Firestore) {
		f.profileTTL = ttl
	}
}

// NewFirestore creates a Firestore-backed store. partitions lists every
// physical bucket including the default one; the store needs the full
// set to gather a user's memories for profile generation.
func NewFirestore(ctx context.Context, projectID, databaseID string, embedder Embedder, partitions []string, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	f := &Firestore{
		client:     client,
		embedder:   embedder,
		partitions: partitions,
		profileTTL: time.Hour,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Close releases the underlying Firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Put(ctx context.Context, input PutInput) (*model.Memory, error) {
	embedding, err := f.embedder.Embedding(ctx, input.Text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed memory text")
	}

	mem := &model.Memory{
		ID:        model.NewMemoryID(),
		UserID:    input.UserID,
		Text:      input.Text,
		Type:      input.Type,
		ImageURL:  input.ImageURL,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}

	doc := &memoryDoc{
		ID:        string(mem.ID),
		UserID:    mem.UserID,
		Text:      mem.Text,
		Type:      string(mem.Type),
		ImageURL:  mem.ImageURL,
		Embedding: firestore.Vector32(mem.Embedding),
		CreatedAt: mem.CreatedAt,
	}

	if _, err := f.client.Collection(input.Partition).Doc(string(mem.ID)).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to put memory",
			goerr.V("partition", input.Partition), goerr.V("id", mem.ID))
	}

	return mem, nil
}

func (f *Firestore) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	embedding, err := f.embedder.Embedding(ctx, input.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	var results []*model.ScoredMemory
	for _, partition := range input.Partitions {
		scored, err := f.searchPartition(ctx, partition, input, embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, scored...)
	}

	// Merged candidates from multiple partitions must be re-ordered by
	// similarity before truncation
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > input.Limit {
		results = results[:input.Limit]
	}

	out := &SearchOutput{Results: results}

	if input.IncludeProfile {
		profile, err := f.Profile(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		out.Profile = profile
	}

	return out, nil
}

func (f *Firestore) searchPartition(ctx context.Context, partition string, input SearchInput, embedding []float32) ([]*model.ScoredMemory, error) {
	query := f.client.Collection(partition).Query.
		Where("user_id", "==", input.UserID)
	if input.Type != "" {
		query = query.Where("memory_type", "==", string(input.Type))
	}

	vq := query.FindNearest("embedding", firestore.Vector32(embedding), input.Limit,
		firestore.DistanceMeasureCosine, &firestore.FindNearestOptions{
			DistanceResultField: distanceField,
		})

	it := vq.Documents(ctx)
	defer it.Stop()

	var results []*model.ScoredMemory
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results",
				goerr.V("partition", partition))
		}

		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory document")
		}

		// Cosine distance is in [0, 2]; similarity = 1 - distance
		results = append(results, &model.ScoredMemory{
			Memory: *doc.toModel(),
			Score:  1.0 - doc.Distance,
		})
	}

	return results, nil
}

func (f *Firestore) GetAll(ctx context.Context, userID string, partitions []string) ([]*model.Memory, error) {
	var memories []*model.Memory
	for _, partition := range partitions {
		snaps, err := f.client.Collection(partition).
			Where("user_id", "==", userID).
			Documents(ctx).GetAll()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list memories",
				goerr.V("partition", partition))
		}

		for _, snap := range snaps {
			var doc memoryDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, goerr.Wrap(err, "failed to decode memory document")
			}
			memories = append(memories, doc.toModel())
		}
	}

	return memories, nil
}

func (f *Firestore) Delete(ctx context.Context, userID string, id model.MemoryID, partitions []string) error {
	for _, partition := range partitions {
		ref := f.client.Collection(partition).Doc(string(id))
		snap, err := ref.Get(ctx)
		if status.Code(err) == codes.NotFound {
			continue
		}
		if err != nil {
			return goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
		}

		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode memory document")
		}
		if doc.UserID != userID {
			continue
		}

		if _, err := ref.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
		}
		return nil
	}

	return goerr.Wrap(ErrMemoryNotFound, "no partition holds the memory", goerr.V("id", id))
}

func (f *Firestore) Profile(ctx context.Context, userID string) (string, error) {
	ref := f.client.Collection(profileCollection).Doc(userID)

	snap, err := ref.Get(ctx)
	if err == nil {
		var doc profileDoc
		if err := snap.DataTo(&doc); err != nil {
			return "", goerr.Wrap(err, "failed to decode profile document")
		}
		if time.Since(doc.UpdatedAt) < f.profileTTL {
			return doc.Content, nil
		}
	} else if status.Code(err) != codes.NotFound {
		return "", goerr.Wrap(err, "failed to get profile", goerr.V("user_id", userID))
	}

	memories, err := f.GetAll(ctx, userID, f.partitions)
	if err != nil {
		return "", err
	}

	content, err := generateProfile(ctx, f.completer, memories)
	if err != nil {
		return "", err
	}

	if _, err := ref.Set(ctx, &profileDoc{
		UserID:    userID,
		Content:   content,
		UpdatedAt: time.Now(),
	}); err != nil {
		return "", goerr.Wrap(err, "failed to save profile", goerr.V("user_id", userID))
	}

	return content, nil
}

func (f *Firestore) MigratePartition(ctx context.Context, partition string, memoryType model.MemoryType) (int, error) {
	snaps, err := f.client.Collection(DefaultPartition).
		Where("memory_type", "==", string(memoryType)).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list records to migrate",
			goerr.V("partition", partition), goerr.V("type", memoryType))
	}

	migrated := 0
	for _, snap := range snaps {
		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return migrated, goerr.Wrap(err, "failed to decode memory document")
		}

		if _, err := f.client.Collection(partition).Doc(doc.ID).Set(ctx, &doc); err != nil {
			return migrated, goerr.Wrap(err, "failed to copy record to partition",
				goerr.V("partition", partition), goerr.V("id", doc.ID))
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return migrated, goerr.Wrap(err, "failed to remove migrated record",
				goerr.V("id", doc.ID))
		}
		migrated++
	}

	return migrated, nil
}

func (f *Firestore) PartitionActive(ctx context.Context, partition string) (bool, error) {
	snap, err := f.client.Collection(substoreCollection).Doc(partition).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to get substore state", goerr.V("partition", partition))
	}

	var doc substoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return false, goerr.Wrap(err, "failed to decode substore document")
	}

	return doc.Active, nil
}

func (f *Firestore) MarkPartitionActive(ctx context.Context, partition string) error {
	_, err := f.client.Collection(substoreCollection).Doc(partition).Set(ctx, &substoreDoc{
		Name:        partition,
		Active:      true,
		ActivatedAt: time.Now(),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark partition active", goerr.V("partition", partition))
	}
	return nil
}
