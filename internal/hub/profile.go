package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/orcid"
)

// Origin tells where a loaded profile came from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// ProfileKey returns the durable cache key for an iD's profile snapshot.
func ProfileKey(orcidID string) string {
	return "orcid_profile_" + orcidID
}

// ProfileRecord is the client view of a researcher's profile.
type ProfileRecord struct {
	ORCID         string        `json:"orcidId"`
	Fields        ProfileFields `json:"profileData"`
	LastUpdated   time.Time     `json:"lastUpdated"`
	SavedToServer bool          `json:"saved-to-server"`
	Origin        Origin        `json:"-"`
}

// ProfileStore reads and writes profiles remote-first, mirroring every
// successful remote read and save into the local cache.
type ProfileStore struct {
	remote ProfileRemote
	local  KV
	now    func() time.Time
}

func NewProfileStore(remote ProfileRemote, local KV) *ProfileStore {
	return &ProfileStore{remote: remote, local: local, now: time.Now}
}

// Load returns the profile for orcidID. Remote and cache failures degrade to
// the local copy or an empty record; only an invalid iD is an error.
func (s *ProfileStore) Load(ctx context.Context, orcidID string) (ProfileRecord, error) {
	if !orcid.ValidID(orcidID) {
		return ProfileRecord{}, fmt.Errorf("%w: %q", ErrInvalidORCID, orcidID)
	}

	doc, found, err := s.remote.LoadProfile(ctx, orcidID)
	if err != nil {
		log.LogWarnWithFields("profile", "Remote load failed, falling back to local cache", map[string]any{
			"orcid": orcidID,
			"error": fmt.Errorf("%w: %w", ErrProfileLoadDegraded, err).Error(),
		})
		return s.readLocal(ctx, orcidID), nil
	}
	if !found {
		return s.readLocal(ctx, orcidID), nil
	}

	record := ProfileRecord{
		ORCID:         orcidID,
		Fields:        doc.AdditionalData,
		LastUpdated:   doc.Metadata.LastUpdated,
		SavedToServer: true,
		Origin:        OriginRemote,
	}
	s.writeLocal(ctx, record)
	return record, nil
}

// Save overwrites the remote profile, then the local snapshot. When the remote
// save fails nothing is written locally.
func (s *ProfileStore) Save(ctx context.Context, orcidID string, fields ProfileFields, identity *Session) error {
	if !orcid.ValidID(orcidID) {
		return fmt.Errorf("%w: %q", ErrInvalidORCID, orcidID)
	}

	req := SaveProfileRequest{
		ORCID:       orcidID,
		ProfileData: fields,
		UserInfo:    identity,
	}
	if err := s.remote.SaveProfile(ctx, req); err != nil {
		return fmt.Errorf("%w: %w", ErrProfileSaveFailed, err)
	}

	s.writeLocal(ctx, ProfileRecord{
		ORCID:         orcidID,
		Fields:        fields,
		LastUpdated:   s.now().UTC(),
		SavedToServer: true,
		Origin:        OriginLocal,
	})
	return nil
}

func (s *ProfileStore) readLocal(ctx context.Context, orcidID string) ProfileRecord {
	empty := ProfileRecord{ORCID: orcidID, Origin: OriginLocal}
	key := ProfileKey(orcidID)

	raw, ok, err := s.local.Get(ctx, key)
	if err != nil {
		log.LogWarnWithFields("profile", "Failed to read local profile", map[string]any{
			"orcid": orcidID,
			"error": err.Error(),
		})
		return empty
	}
	if !ok {
		return empty
	}

	var record ProfileRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		log.LogWarnWithFields("profile", "Discarding local profile", map[string]any{
			"orcid": orcidID,
			"error": fmt.Errorf("%w: %w", ErrCorruptedCache, err).Error(),
		})
		if err := s.local.Delete(ctx, key); err != nil {
			log.LogWarnWithFields("profile", "Failed to delete local profile", map[string]any{
				"orcid": orcidID,
				"error": err.Error(),
			})
		}
		return empty
	}

	record.ORCID = orcidID
	record.Origin = OriginLocal
	return record
}

func (s *ProfileStore) writeLocal(ctx context.Context, record ProfileRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.local.Set(ctx, ProfileKey(record.ORCID), string(data)); err != nil {
		log.LogWarnWithFields("profile", "Failed to write local profile", map[string]any{
			"orcid": record.ORCID,
			"error": err.Error(),
		})
	}
}
