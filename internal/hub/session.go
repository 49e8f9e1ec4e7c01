package hub

import (
	"strings"
	"time"

	"github.com/dgellow/research-hub/internal/orcid"
)

// SessionKey is the durable key holding the serialized session.
const SessionKey = "orcid_user"

// ProviderORCID is the only provider a resumable session may carry.
const ProviderORCID = "orcid"

// Session is the authenticated identity of the current user. It is replaced
// wholesale on login and cleared on logout, never mutated in place.
type Session struct {
	Provider    string             `json:"provider"`
	ORCID       string             `json:"orcid"`
	DisplayName string             `json:"name"`
	Email       string             `json:"email,omitempty"`
	Affiliation *orcid.Affiliation `json:"affiliation,omitempty"`
	IssuedAt    time.Time          `json:"issuedAt"`
}

// DisplayName picks the credit name, then the trimmed given and family
// names, then the raw iD.
func DisplayName(orcidID string, name *orcid.Name) string {
	if name != nil {
		if credit := strings.TrimSpace(name.CreditName); credit != "" {
			return credit
		}
		if full := strings.TrimSpace(name.GivenNames + " " + name.FamilyName); full != "" {
			return full
		}
	}
	return orcidID
}

func newSession(identity *Identity, issuedAt time.Time) Session {
	return Session{
		Provider:    ProviderORCID,
		ORCID:       identity.ORCID,
		DisplayName: DisplayName(identity.ORCID, identity.Name),
		Email:       identity.Email,
		Affiliation: identity.Affiliation,
		IssuedAt:    issuedAt,
	}
}
