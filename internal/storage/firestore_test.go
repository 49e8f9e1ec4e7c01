package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirestoreStorageConfig(t *testing.T) {
	t.Run("missing GCP project ID", func(t *testing.T) {
		_, err := NewFirestoreStorage(context.Background(), "", "(default)", DefaultFirestoreCollection)
		assert.Error(t, err, "Expected error when GCP project ID is missing for Firestore storage")
		assert.Contains(t, err.Error(), "projectID is required")
	})

	t.Run("missing collection", func(t *testing.T) {
		_, err := NewFirestoreStorage(context.Background(), "test-project", "(default)", "")
		assert.Error(t, err, "Expected error when collection is empty")
		assert.Contains(t, err.Error(), "collection is required")
	})
}
