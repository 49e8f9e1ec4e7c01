package orcid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgellow/research-hub/internal/ioutil"
	"github.com/dgellow/research-hub/internal/log"
	"golang.org/x/sync/errgroup"
)

// Name holds the optional name parts of an ORCID record.
type Name struct {
	CreditName string `json:"creditName,omitempty"`
	GivenNames string `json:"givenNames,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

// Affiliation is the primary employment listed on an ORCID record.
type Affiliation struct {
	Organization string `json:"organization,omitempty"`
	Department   string `json:"department,omitempty"`
	Role         string `json:"role,omitempty"`
}

// Person is the normalized, best-effort view of an ORCID record.
// Any field may be absent: records are only as complete as the researcher
// made them, and lookups degrade to empty values instead of failing.
type Person struct {
	Name        *Name        `json:"name"`
	Email       string       `json:"email,omitempty"`
	Affiliation *Affiliation `json:"affiliation"`
}

// orcidValue is ORCID's wrapper for scalar fields ({"value": "..."}).
type orcidValue struct {
	Value string `json:"value"`
}

// personResponse is the subset of GET /v3.0/{id}/person we read.
type personResponse struct {
	Name *struct {
		GivenNames *orcidValue `json:"given-names"`
		FamilyName *orcidValue `json:"family-name"`
		CreditName *orcidValue `json:"credit-name"`
	} `json:"name"`
	Emails *struct {
		Email []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		} `json:"email"`
	} `json:"emails"`
}

type employmentSummary struct {
	DepartmentName string `json:"department-name"`
	RoleTitle      string `json:"role-title"`
	Organization   *struct {
		Name string `json:"name"`
	} `json:"organization"`
}

// employmentsResponse is the subset of GET /v3.0/{id}/employments we read.
type employmentsResponse struct {
	AffiliationGroup []struct {
		Summaries []struct {
			EmploymentSummary *employmentSummary `json:"employment-summary"`
		} `json:"summaries"`
	} `json:"affiliation-group"`
}

// FetchProfile looks up the person and employment records for an iD.
// Both lookups run concurrently and each one degrades independently: a
// failed lookup leaves its fields empty and is only logged. Profile
// enrichment must never block a successful sign-in.
func (p *Provider) FetchProfile(ctx context.Context, orcidID string, token *Token) Person {
	var person Person
	if token == nil || token.AccessToken == "" || !ValidID(orcidID) {
		log.LogWarnWithFields("orcid", "Skipping profile lookup", map[string]any{
			"orcid": orcidID,
		})
		return person
	}

	var g errgroup.Group
	g.Go(func() error {
		var resp personResponse
		if err := p.getJSON(ctx, orcidID, "person", token.AccessToken, &resp); err != nil {
			log.LogWarnWithFields("orcid", "Person lookup failed, using minimal data", map[string]any{
				"orcid": orcidID,
				"error": err.Error(),
			})
			return nil
		}
		person.Name = resp.name()
		person.Email = resp.primaryEmail()
		return nil
	})
	g.Go(func() error {
		var resp employmentsResponse
		if err := p.getJSON(ctx, orcidID, "employments", token.AccessToken, &resp); err != nil {
			log.LogWarnWithFields("orcid", "Employment lookup failed, using minimal data", map[string]any{
				"orcid": orcidID,
				"error": err.Error(),
			})
			return nil
		}
		person.Affiliation = resp.primary()
		return nil
	})
	_ = g.Wait()

	return person
}

func (p *Provider) getJSON(ctx context.Context, orcidID, section, accessToken string, v any) error {
	endpoint := fmt.Sprintf("%s/v3.0/%s/%s", p.apiBaseURL, orcidID, section)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", section, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to get %s: status %d: %s", section, resp.StatusCode, ioutil.ReadLimited(resp.Body, 512))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", section, err)
	}
	return nil
}

func (r personResponse) name() *Name {
	if r.Name == nil {
		return nil
	}
	n := &Name{
		CreditName: valueOf(r.Name.CreditName),
		GivenNames: valueOf(r.Name.GivenNames),
		FamilyName: valueOf(r.Name.FamilyName),
	}
	if *n == (Name{}) {
		return nil
	}
	return n
}

func (r personResponse) primaryEmail() string {
	if r.Emails == nil || len(r.Emails.Email) == 0 {
		return ""
	}
	for _, e := range r.Emails.Email {
		if e.Primary && e.Email != "" {
			return e.Email
		}
	}
	return r.Emails.Email[0].Email
}

func (r employmentsResponse) primary() *Affiliation {
	for _, group := range r.AffiliationGroup {
		for _, s := range group.Summaries {
			if s.EmploymentSummary == nil {
				continue
			}
			a := &Affiliation{
				Department: s.EmploymentSummary.DepartmentName,
				Role:       s.EmploymentSummary.RoleTitle,
			}
			if s.EmploymentSummary.Organization != nil {
				a.Organization = s.EmploymentSummary.Organization.Name
			}
			return a
		}
	}
	return nil
}

func valueOf(v *orcidValue) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.Value)
}
