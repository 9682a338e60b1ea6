package repository_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	partitions := []string{"working_memories", "episodic_memories", "procedural_memories"}
	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID, &wordEmbedder{}, partitions)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func testUserID() string {
	return fmt.Sprintf("test-user-%d-%d", time.Now().UnixNano(), rand.Intn(1000))
}

func TestFirestorePutAndGetAll(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	userID := testUserID()

	mem, err := repo.Put(ctx, repository.PutInput{
		Partition: repository.DefaultPartition,
		UserID:    userID,
		Text:      "my cat is named Mochi",
		Type:      model.MemoryTypeSemantic,
	})
	gt.NoError(t, err)
	gt.V(t, string(mem.ID)).NotEqual("")
	gt.False(t, mem.CreatedAt.IsZero())

	all, err := repo.GetAll(ctx, userID, []string{repository.DefaultPartition})
	gt.NoError(t, err)
	gt.A(t, all).Length(1)
	gt.V(t, all[0].Text).Equal("my cat is named Mochi")
	gt.V(t, all[0].Type).Equal(model.MemoryTypeSemantic)
}

func TestFirestoreSearch(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	userID := testUserID()

	seeds := []repository.PutInput{
		{Partition: repository.DefaultPartition, UserID: userID, Text: "my cat is named Mochi", Type: model.MemoryTypeSemantic},
		{Partition: repository.DefaultPartition, UserID: userID, Text: "walked the dog this morning", Type: model.MemoryTypeEpisodic},
	}
	for _, seed := range seeds {
		_, err := repo.Put(ctx, seed)
		gt.NoError(t, err)
	}

	out, err := repo.Search(ctx, repository.SearchInput{
		Query:      "cat",
		UserID:     userID,
		Partitions: []string{repository.DefaultPartition},
		Limit:      5,
	})
	gt.NoError(t, err)
	gt.A(t, out.Results).Longer(0)
	gt.V(t, out.Results[0].Text).Equal("my cat is named Mochi")
	gt.N(t, out.Results[0].Score).Greater(0.0)

	t.Run("type filter", func(t *testing.T) {
		out, err := repo.Search(ctx, repository.SearchInput{
			Query:      "cat",
			UserID:     userID,
			Partitions: []string{repository.DefaultPartition},
			Type:       model.MemoryTypeEpisodic,
			Limit:      5,
		})
		gt.NoError(t, err)
		gt.A(t, out.Results).Length(1)
		gt.V(t, out.Results[0].Text).Equal("walked the dog this morning")
	})
}

func TestFirestoreDelete(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	userID := testUserID()

	mem, err := repo.Put(ctx, repository.PutInput{
		Partition: repository.DefaultPartition,
		UserID:    userID,
		Text:      "temporary note",
		Type:      model.MemoryTypeWorking,
	})
	gt.NoError(t, err)

	partitions := []string{repository.DefaultPartition}

	t.Run("other user cannot delete", func(t *testing.T) {
		err := repo.Delete(ctx, "someone-else", mem.ID, partitions)
		gt.Error(t, err)
	})

	t.Run("owner deletes", func(t *testing.T) {
		gt.NoError(t, repo.Delete(ctx, userID, mem.ID, partitions))

		all, err := repo.GetAll(ctx, userID, partitions)
		gt.NoError(t, err)
		gt.A(t, all).Length(0)
	})

	t.Run("missing record", func(t *testing.T) {
		err := repo.Delete(ctx, userID, model.NewMemoryID(), partitions)
		gt.Error(t, err)
	})
}

func TestFirestoreMigratePartition(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	userID := testUserID()

	_, err := repo.Put(ctx, repository.PutInput{
		Partition: repository.DefaultPartition,
		UserID:    userID,
		Text:      "buy cat food",
		Type:      model.MemoryTypeWorking,
	})
	gt.NoError(t, err)

	count, err := repo.MigratePartition(ctx, "working_memories", model.MemoryTypeWorking)
	gt.NoError(t, err)
	gt.N(t, count).GreaterOrEqual(1)

	moved, err := repo.GetAll(ctx, userID, []string{"working_memories"})
	gt.NoError(t, err)
	gt.A(t, moved).Length(1)

	left, err := repo.GetAll(ctx, userID, []string{repository.DefaultPartition})
	gt.NoError(t, err)
	gt.A(t, left).Length(0)
}

func TestFirestorePartitionMarkers(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	partition := fmt.Sprintf("test_partition_%d", time.Now().UnixNano())

	active, err := repo.PartitionActive(ctx, partition)
	gt.NoError(t, err)
	gt.False(t, active)

	gt.NoError(t, repo.MarkPartitionActive(ctx, partition))

	active, err = repo.PartitionActive(ctx, partition)
	gt.NoError(t, err)
	gt.True(t, active)
}

func TestFirestoreProfile(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	userID := testUserID()

	_, err := repo.Put(ctx, repository.PutInput{
		Partition: repository.DefaultPartition,
		UserID:    userID,
		Text:      "my cat is named Mochi",
		Type:      model.MemoryTypeSemantic,
	})
	gt.NoError(t, err)

	// No completer is configured, so the profile is a plain listing
	profile, err := repo.Profile(ctx, userID)
	gt.NoError(t, err)
	gt.S(t, profile).Contains("my cat is named Mochi")
}
