package e2e

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glizzus/sound-clips/internal/clipstore"
	"github.com/glizzus/sound-clips/internal/datalayer"
	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/soundboard"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var seedOnce sync.Once

type RandomSnowFlakeGenerator struct {
	counter uint64
}

func (g *RandomSnowFlakeGenerator) Next() (string, error) {
	const min = 1e17
	if atomic.LoadUint64(&g.counter) < min {
		atomic.CompareAndSwapUint64(&g.counter, 0, min)
	}
	id := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%d", id), nil
}

var _ generator.Generator[string] = (*RandomSnowFlakeGenerator)(nil)

// SeedGlobalNoise fills the catalog with clips owned by users no test asks
// about, so queries that forget to filter by owner show up as failures.
func SeedGlobalNoise(t *testing.T, repo *repository.PostgresClipRepository) {
	t.Helper()
	seedOnce.Do(func() {
		ownerIDGen := RandomSnowFlakeGenerator{}
		for i := range 100 {
			ownerID, _ := ownerIDGen.Next()
			digest := clipstore.Digest(fmt.Appendf(nil, "noise-%d", i))

			_, err := repo.Create(t.Context(), fmt.Sprintf("noise-%d", i), ownerID, digest, fmt.Sprintf("noise-%d.mp3", i))
			if err != nil {
				t.Fatalf("failed to save clip: %v", err)
			}
		}
	})
}

var (
	once              sync.Once
	postgresContainer *postgres.PostgresContainer
	connStr           string
	startErr          error
	pool              *pgxpool.Pool
	wg                sync.WaitGroup
)

// UsePostgres signals that the test is using Postgres as its database.
// This will either provision or reuse a Postgres container for the test.
// Do not expect a clean state in the database; it is shared across tests
// to simulate real-world usage.
func UsePostgres(t *testing.T) string {
	t.Helper()

	once.Do(func() {
		ctx := context.Background()
		postgresContainer, startErr = postgres.Run(
			ctx,
			"postgres",
			postgres.WithDatabase("soundclips"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			postgres.BasicWaitStrategies(),
		)
		if startErr != nil {
			return
		}
		connStr, startErr = postgresContainer.ConnectionString(ctx)
		if startErr != nil {
			return
		}

		pool, startErr = pgxpool.New(ctx, connStr)
		if startErr != nil {
			return
		}
		defer pool.Close()

		startErr = datalayer.MigratePostgres(pool)
	})

	if startErr != nil {
		t.Fatalf("failed to start postgres container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	return connStr
}

// GetRepository creates a new PostgresClipRepository for testing.
// It uses the provided connection string to connect to the database.
// It performs no modifications or migrations on the database schema.
func GetRepository(t *testing.T, connStr string) *repository.PostgresClipRepository {
	t.Helper()
	pool, err := pgxpool.New(t.Context(), connStr)
	if err != nil {
		t.Fatalf("failed to create postgres pool: %v", err)
	}

	t.Cleanup(pool.Close)
	return repository.NewPostgresClipRepository(pool, &generator.UUIDV4Generator{})
}

// NewBoard builds a clip board over repo that stores payloads in a
// temporary directory. It cannot play clips.
func NewBoard(t *testing.T, repo *repository.PostgresClipRepository) (*soundboard.Service, *datalayer.FileStorage) {
	t.Helper()
	blobs, err := datalayer.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	return soundboard.NewService(repo, clipstore.New(blobs, nil), nil, soundboard.Options{}), blobs
}

func TerminatePostgresForE2E() {
	wg.Wait()
	if postgresContainer != nil {
		err := postgresContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate postgres container: %v", err)
		}
	}
}
