package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestJSONFileRepository_Load(t *testing.T) {
	path := writeRecords(t, `{
		"bob": {
			"username": "bob",
			"full_name": "Bob Trader",
			"email": "bob@example.com",
			"hashed_password": "$2b$12$abcdefghijklmnopqrstuu",
			"disabled": false
		},
		"carol": {
			"username": "carol",
			"hashed_password": null,
			"disabled": true
		},
		"dave": {
			"hashed_password": "$2a$10$x"
		}
	}`)

	repo, err := NewJSONFileRepository(path)
	require.NoError(t, err)
	assert.Equal(t, path, repo.Path())
	ctx := context.Background()

	bob, err := repo.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob Trader", bob.FullName)
	assert.Equal(t, "bob@example.com", bob.Email)
	assert.Equal(t, "$2b$12$abcdefghijklmnopqrstuu", bob.PasswordHash)
	assert.True(t, bob.IsActive())

	carol, err := repo.GetUserByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, carol.PasswordHash)
	assert.True(t, carol.Disabled)

	dave, err := repo.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", dave.Username)
	assert.False(t, dave.Disabled)

	_, err = repo.GetUserByUsername(ctx, "eve")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestJSONFileRepository_CreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "records.json")

	repo, err := NewJSONFileRepository(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, TemplateUsername)
	assert.Equal(t, TemplateUsername, doc[TemplateUsername]["username"])
	assert.Nil(t, doc[TemplateUsername]["hashed_password"])
	assert.Equal(t, true, doc[TemplateUsername]["disabled"])

	user, err := repo.GetUserByUsername(context.Background(), TemplateUsername)
	require.NoError(t, err)
	assert.True(t, user.Disabled)
	assert.Empty(t, user.PasswordHash)
}

func TestJSONFileRepository_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{"},
		{name: "not an object", content: `["bob"]`},
		{name: "key mismatch", content: `{"bob": {"username": "alice"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJSONFileRepository(writeRecords(t, tt.content))
			assert.Error(t, err)
		})
	}
}
