package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const (
	mongoImage            = "mongo:7"
	mongoPort             = "27017/tcp"
	containerStartTimeout = 120 * time.Second
)

// setupMongoContainer starts a throwaway MongoDB and returns its URI
func setupMongoContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{mongoPort},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(containerStartTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start MongoDB container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate MongoDB container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get MongoDB container host")
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err, "Failed to get MongoDB mapped port")

	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func TestMongoStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	uri := setupMongoContainer(t)
	logger := zap.NewNop().Sugar()

	runStoreSuite(t, func(t *testing.T) Store {
		// a fresh database per subtest keeps them isolated
		db, err := NewMongoDB(uri, "agora_test_"+uuid.NewString()[:8], 10, logger)
		require.NoError(t, err)

		store := NewMongoStore(db, 10*time.Second, logger)
		require.NoError(t, store.EnsureIndexes(context.Background()))
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = db.Database.Drop(ctx)
			_ = store.Close(ctx)
		})
		return store
	})
}

func TestNewMongoDB_InvalidURI(t *testing.T) {
	_, err := NewMongoDB("invalid-uri", "testdb", 10, zap.NewNop().Sugar())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to connect to MongoDB")
}
