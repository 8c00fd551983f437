package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestListKeys_SQL(t *testing.T) {
	gdb, rec := newDryRunDB(t)
	repo := NewRepository(gdb)
	tenant := uuid.New()

	_, err := repo.ListKeys(context.Background(), tenant)
	require.NoError(t, err)

	sql := rec.last(t)
	assert.Contains(t, sql, `FROM "api_keys"`)
	assert.Contains(t, sql, "tenant_id = '"+tenant.String()+"'")
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.NotContains(t, sql, "hash", "secret fingerprint must not be selected for listing")
}

func TestInsertKey_SQL(t *testing.T) {
	gdb, rec := newDryRunDB(t)
	repo := NewRepository(gdb)

	key := &APIKey{
		TenantID: uuid.New(),
		Name:     "Visa Read",
		Hash:     "abc123",
		Last4:    "wxyz",
		Scope:    []string{"visa:read"},
	}
	require.NoError(t, repo.InsertKey(context.Background(), key))

	assert.NotEqual(t, uuid.Nil, key.ID, "BeforeCreate assigns an id")
	sql := rec.last(t)
	assert.Contains(t, sql, `INSERT INTO "api_keys"`)
	assert.Contains(t, sql, `"hash"`)
	assert.Contains(t, sql, `"last4"`)
	assert.Contains(t, sql, "'Visa Read'")
}

func TestDeleteKey_SQL(t *testing.T) {
	gdb, rec := newDryRunDB(t)
	repo := NewRepository(gdb)
	tenant, id := uuid.New(), uuid.New()

	n, err := repo.DeleteKey(context.Background(), tenant, id)
	require.NoError(t, err)
	assert.Zero(t, n)

	sql := rec.last(t)
	assert.Contains(t, sql, `DELETE FROM "api_keys"`)
	assert.Contains(t, sql, "id = '"+id.String()+"'")
	assert.Contains(t, sql, "tenant_id = '"+tenant.String()+"'")
}

func TestFindKeyByHash_SQL(t *testing.T) {
	gdb, rec := newDryRunDB(t)
	repo := NewRepository(gdb)

	key, err := repo.FindKeyByHash(context.Background(), "deadbeef")
	assert.Nil(t, key)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	sql := rec.last(t)
	assert.Contains(t, sql, `FROM "api_keys"`)
	assert.Contains(t, sql, "hash = 'deadbeef'")
	assert.Contains(t, sql, "LIMIT 1")
}

func TestCountKeys_AllTenants(t *testing.T) {
	gdb, rec := newDryRunDB(t)
	repo := NewRepository(gdb)

	_, err := repo.CountKeys(context.Background(), uuid.Nil)
	require.NoError(t, err)
	sql := rec.last(t)
	assert.Contains(t, sql, "count(*)")
	assert.NotContains(t, sql, "tenant_id")
}

func TestAPIKey_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&APIKey{}).Expired(now), "nil expiry never expires")
	assert.True(t, (&APIKey{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&APIKey{ExpiresAt: &future}).Expired(now))
}

func TestAPIKey_HasScope(t *testing.T) {
	k := &APIKey{Scope: []string{"visa:read", "visa:write"}}
	assert.True(t, k.HasScope("visa:write"))
	assert.False(t, k.HasScope("billing:read"))
}
