package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

func TestClientRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository()

	for _, id := range []string{"app-a", "app-b", "app-c"} {
		require.NoError(t, repo.Create(ctx, &oauth.Client{
			ID:       uuid.New(),
			ClientID: id,
			Active:   true,
		}))
	}

	all, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := repo.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAuthorizationCodeConsumeRace(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthorizationCodeRepository()

	code := oauth.NewAuthorizationCode(
		"hash-1", "web-app", "user-42",
		"https://app.example.com/callback", "openid", "", "",
		time.Minute,
	)
	require.NoError(t, repo.Create(ctx, code))

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume(ctx, "hash-1"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestPendingAuthorizationExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingAuthorizationRepository()

	expired := oauth.NewPendingAuthorization(
		"web-app", "https://app.example.com/callback", "openid", "st", "", "",
		-time.Minute,
	)
	require.NoError(t, repo.Store(ctx, expired))

	_, err := repo.Consume(ctx, expired.ID)
	assert.ErrorIs(t, err, errors.ErrPendingNotFound)

	// Expired consume still removed the record
	_, err = repo.Consume(ctx, expired.ID)
	assert.ErrorIs(t, err, errors.ErrPendingNotFound)
}
