//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	auth "github.com/yapyap/go-auth"
	"github.com/yapyap/go-auth/store"
)

func startPostgres(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("yapyap"),
		postgres.WithUsername("yapyap"),
		postgres.WithPassword("yapyap"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := store.Open(ctx, store.Options{Driver: store.DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.Migrate(ctx, db))
	return db
}

func TestPostgres_MigrateUpDown(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	require.NoError(t, store.Status(ctx, db))
	require.NoError(t, store.Rollback(ctx, db))
	require.NoError(t, store.Migrate(ctx, db))
}

func TestPostgres_UniqueEmail(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	_, err := repo.Accounts().Create(ctx, &auth.Account{
		FullName:     "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		IsVerified:   true,
	})
	require.NoError(t, err)

	_, err = repo.Accounts().Create(ctx, &auth.Account{
		FullName:     "Ada Again",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		IsVerified:   true,
	})
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeConflict))

	got, err := repo.Accounts().GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FullName)
}

func TestPostgres_ConcurrentInsertsOneWinner(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)

	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				_, err := repo.Accounts().CreateTx(ctx, tx, &auth.Account{
					FullName:     "Ada",
					Email:        "ada@example.com",
					PasswordHash: "hash",
					IsVerified:   true,
				})
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case auth.HasTextCode(err, auth.TextCodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, conflicts)
}

func TestPostgres_ConcurrentVerifyOverStaleAccount(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	stale, err := repo.Accounts().Create(ctx, &auth.Account{
		FullName:     "Old Name",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		IsVerified:   false,
	})
	require.NoError(t, err)

	codec := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), "yapyap-integration")
	handler := auth.NewVerifyEmailHandler(auth.Dependencies{
		Repo:   repo,
		Codec:  codec,
		Logger: auth.NewSlogLogger(nil),
	})

	const n = 8
	tokens := make([]string, 0, n)
	for i := range n {
		hash, err := auth.HashPassword(fmt.Sprintf("pw-%d", i))
		require.NoError(t, err)
		token, err := codec.Encode(auth.NewPendingClaims(auth.PendingRegistration{
			FullName:     fmt.Sprintf("Ada %d", i),
			Email:        "ada@example.com",
			PasswordHash: hash,
		}), time.Hour)
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)

	start := make(chan struct{})
	for _, token := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := handler.Execute(ctx, auth.VerifyEmailMessage{Token: token})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case auth.HasTextCode(err, auth.TextCodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, conflicts)

	count, err := db.NewSelect().Model((*auth.Account)(nil)).Where("email = ?", "ada@example.com").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.Accounts().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.NotEqual(t, stale.ID, got.ID)
}
