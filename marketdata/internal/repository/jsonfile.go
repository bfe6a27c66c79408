package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
)

// TemplateUsername is the placeholder account written to a new records file.
const TemplateUsername = "nameofuser"

// userRecord is the on-disk form of one identity in records.json.
type userRecord struct {
	Username       string  `json:"username"`
	FullName       *string `json:"full_name,omitempty"`
	Email          *string `json:"email,omitempty"`
	HashedPassword *string `json:"hashed_password"`
	Disabled       *bool   `json:"disabled,omitempty"`
}

// JSONFileRepository serves identities from a JSON document mapping
// username to record. The file is read once; later edits need a restart.
type JSONFileRepository struct {
	path  string
	users *InMemoryRepository
}

// NewJSONFileRepository loads the records at path. A missing file is
// created with a single disabled template account so operators have a
// shape to copy.
func NewJSONFileRepository(path string) (*JSONFileRepository, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeTemplate(path); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user records: %w", err)
	}

	users, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user records %s: %w", path, err)
	}

	return &JSONFileRepository{
		path:  path,
		users: NewInMemoryRepository(users...),
	}, nil
}

// Path is the records file this repository was loaded from.
func (r *JSONFileRepository) Path() string { return r.path }

func (r *JSONFileRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.users.GetUserByUsername(ctx, username)
}

func decodeRecords(data []byte) ([]*models.User, error) {
	var records map[string]userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(records))
	for key, rec := range records {
		if rec.Username != "" && rec.Username != key {
			return nil, fmt.Errorf("record %q has username %q", key, rec.Username)
		}
		u := &models.User{Username: key}
		if rec.FullName != nil {
			u.FullName = *rec.FullName
		}
		if rec.Email != nil {
			u.Email = *rec.Email
		}
		if rec.HashedPassword != nil {
			u.PasswordHash = *rec.HashedPassword
		}
		if rec.Disabled != nil {
			u.Disabled = *rec.Disabled
		}
		users = append(users, u)
	}
	return users, nil
}

func writeTemplate(path string) error {
	disabled := true
	template := map[string]userRecord{
		TemplateUsername: {
			Username: TemplateUsername,
			Disabled: &disabled,
		},
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write records template: %w", err)
	}
	return nil
}
