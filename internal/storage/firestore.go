package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/dgellow/research-hub/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultFirestoreCollection holds one document per ORCID iD.
const DefaultFirestoreCollection = "research_hub_profiles"

// FirestoreStorage stores profiles in Google Cloud Firestore.
type FirestoreStorage struct {
	client     *firestore.Client
	projectID  string
	collection string
}

// Ensure FirestoreStorage implements ProfileStorage
var _ ProfileStorage = (*FirestoreStorage)(nil)

// NewFirestoreStorage creates a new Firestore storage instance
func NewFirestoreStorage(ctx context.Context, projectID, database, collection string) (*FirestoreStorage, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error

	// Firestore client with custom database
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Connected to Firestore", map[string]any{
		"project":    projectID,
		"database":   database,
		"collection": collection,
	})

	return &FirestoreStorage{
		client:     client,
		projectID:  projectID,
		collection: collection,
	}, nil
}

// GetProfile retrieves the profile document for orcidID
func (s *FirestoreStorage) GetProfile(ctx context.Context, orcidID string) (*ProfileDocument, error) {
	snap, err := s.client.Collection(s.collection).Doc(orcidID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile from Firestore: %w", err)
	}

	var doc ProfileDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedProfile, err)
	}
	if doc.ORCID == "" {
		doc.ORCID = snap.Ref.ID
	}
	return &doc, nil
}

// PutProfile replaces the profile document for doc.ORCID
func (s *FirestoreStorage) PutProfile(ctx context.Context, doc *ProfileDocument) error {
	if doc == nil || doc.ORCID == "" {
		return fmt.Errorf("profile document requires an orcid iD")
	}
	if _, err := s.client.Collection(s.collection).Doc(doc.ORCID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to store profile in Firestore: %w", err)
	}
	return nil
}

// ListProfiles returns every profile in the collection. Documents that cannot
// be decoded are logged and skipped.
func (s *FirestoreStorage) ListProfiles(ctx context.Context) ([]*ProfileDocument, error) {
	iter := s.client.Collection(s.collection).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var docs []*ProfileDocument
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate profiles: %w", err)
		}

		var doc ProfileDocument
		if err := snap.DataTo(&doc); err != nil {
			log.LogWarnWithFields("storage", "Skipping unreadable profile", map[string]any{
				"orcid": snap.Ref.ID,
				"error": err.Error(),
			})
			continue
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// Close closes the Firestore client
func (s *FirestoreStorage) Close() error {
	return s.client.Close()
}
