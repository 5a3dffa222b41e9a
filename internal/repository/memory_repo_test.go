package repository

import (
	"context"
	"testing"
	"time"

	"diamond_tma/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProfileRepository_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository()
	clock := time.Unix(1_700_000_000, 0)
	repo.now = func() time.Time { return clock }

	first := domain.ProfileFromIdentity(domain.Identity{TelegramID: 1, FirstName: "Ada"}, clock)
	require.NoError(t, repo.Upsert(ctx, first))

	clock = clock.Add(time.Hour)
	second := domain.ProfileFromIdentity(domain.Identity{TelegramID: 1, FirstName: "Ada", Username: "ada"}, clock)
	require.NoError(t, repo.Upsert(ctx, second))

	got, err := repo.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Username)
	assert.Equal(t, time.Unix(1_700_000_000, 0), got.CreatedAt)
	assert.Equal(t, clock, got.UpdatedAt)
	assert.Equal(t, clock, got.LastActive)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryProfileRepository_NotFound(t *testing.T) {
	_, err := NewMemoryProfileRepository().GetByTelegramID(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestMemoryAuditRepository_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditRepository()

	for _, action := range []string{domain.AuditActionLogin, domain.AuditActionLogout, domain.AuditActionLogin} {
		require.NoError(t, repo.Create(ctx, &domain.AuditLog{TelegramID: 7, Action: action, Category: domain.AuditCategoryAuth}))
	}
	require.NoError(t, repo.Create(ctx, &domain.AuditLog{TelegramID: 8, Action: domain.AuditActionLogin, Category: domain.AuditCategoryAuth}))

	logs, err := repo.GetByTelegramID(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(3), logs[0].ID)
	assert.Equal(t, int64(2), logs[1].ID)

	byCat, err := repo.GetByCategory(ctx, domain.AuditCategoryAuth, 0)
	require.NoError(t, err)
	assert.Len(t, byCat, 4)
}
