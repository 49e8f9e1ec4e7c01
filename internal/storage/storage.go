package storage

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound is returned when no profile exists for an iD
var ErrProfileNotFound = errors.New("profile not found")

// ErrCorruptedProfile is returned when a stored profile cannot be decoded
var ErrCorruptedProfile = errors.New("corrupted profile data")

const (
	// ProfileVersion is the document schema version written on save.
	ProfileVersion = "1.0.0"
	// ProfileSource identifies this application in saved documents.
	ProfileSource = "research-intelligence-hub"
)

// ProfileFields are the fields a researcher enters by hand.
type ProfileFields struct {
	ResearchInterests string `json:"research-interests" firestore:"research_interests"`
	Institution       string `json:"institution" firestore:"institution"`
	Department        string `json:"department" firestore:"department"`
}

// ProfileMetadata describes when and by whom a document was written.
type ProfileMetadata struct {
	LastUpdated time.Time `json:"lastUpdated" firestore:"last_updated"`
	Version     string    `json:"version" firestore:"version"`
	Source      string    `json:"source" firestore:"source"`
}

// ProfileDocument is the durable record for one researcher. A save replaces
// the whole document.
type ProfileDocument struct {
	ORCID          string          `json:"orcidId" firestore:"orcid_id"`
	UserInfo       map[string]any  `json:"userInfo" firestore:"user_info"`
	AdditionalData ProfileFields   `json:"additionalData" firestore:"additional_data"`
	Metadata       ProfileMetadata `json:"metadata" firestore:"metadata"`
}

// NewProfileDocument builds the document written on save.
func NewProfileDocument(orcidID string, fields ProfileFields, userInfo map[string]any, now time.Time) *ProfileDocument {
	if userInfo == nil {
		userInfo = map[string]any{}
	}
	return &ProfileDocument{
		ORCID:          orcidID,
		UserInfo:       userInfo,
		AdditionalData: fields,
		Metadata: ProfileMetadata{
			LastUpdated: now.UTC(),
			Version:     ProfileVersion,
			Source:      ProfileSource,
		},
	}
}

// ProfileStorage is the durable profile store, keyed by ORCID iD.
type ProfileStorage interface {
	GetProfile(ctx context.Context, orcidID string) (*ProfileDocument, error)
	PutProfile(ctx context.Context, doc *ProfileDocument) error
	ListProfiles(ctx context.Context) ([]*ProfileDocument, error)
	Close() error
}
