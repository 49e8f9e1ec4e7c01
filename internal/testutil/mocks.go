package testutil

import (
	"context"
	"encoding/json"

	"github.com/dgellow/research-hub/internal/hub"
	"github.com/dgellow/research-hub/internal/orcid"
	"github.com/dgellow/research-hub/internal/pipeline"
	"github.com/dgellow/research-hub/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockConfigSource struct {
	mock.Mock
}

func (m *MockConfigSource) FetchConfig(ctx context.Context) (hub.OAuthConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(hub.OAuthConfig), args.Error(1)
}

type MockCallbackExchanger struct {
	mock.Mock
}

func (m *MockCallbackExchanger) ExchangeCallback(ctx context.Context, code, state string) (*hub.Identity, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hub.Identity), args.Error(1)
}

type MockProfileRemote struct {
	mock.Mock
}

func (m *MockProfileRemote) LoadProfile(ctx context.Context, orcidID string) (*hub.RemoteProfile, bool, error) {
	args := m.Called(ctx, orcidID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*hub.RemoteProfile), args.Bool(1), args.Error(2)
}

func (m *MockProfileRemote) SaveProfile(ctx context.Context, req hub.SaveProfileRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type MockLegacySessionManager struct {
	mock.Mock
}

func (m *MockLegacySessionManager) Active() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockLegacySessionManager) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// FailingKV is a hub.KV whose every operation fails with Err.
type FailingKV struct {
	Err error
}

func (f FailingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.Err }
func (f FailingKV) Set(context.Context, string, string) error         { return f.Err }
func (f FailingKV) Delete(context.Context, string) error              { return f.Err }

type MockTokenExchanger struct {
	mock.Mock
}

func (m *MockTokenExchanger) ExchangeCode(ctx context.Context, code string) (*orcid.Token, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orcid.Token), args.Error(1)
}

func (m *MockTokenExchanger) FetchProfile(ctx context.Context, orcidID string, token *orcid.Token) orcid.Person {
	args := m.Called(ctx, orcidID, token)
	return args.Get(0).(orcid.Person)
}

type MockProfileStorage struct {
	mock.Mock
}

func (m *MockProfileStorage) GetProfile(ctx context.Context, orcidID string) (*storage.ProfileDocument, error) {
	args := m.Called(ctx, orcidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ProfileDocument), args.Error(1)
}

func (m *MockProfileStorage) PutProfile(ctx context.Context, doc *storage.ProfileDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockProfileStorage) ListProfiles(ctx context.Context) ([]*storage.ProfileDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.ProfileDocument), args.Error(1)
}

func (m *MockProfileStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, q pipeline.Query) (json.RawMessage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
