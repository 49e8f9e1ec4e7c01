package config

import (
	"encoding/json"
)

// UnmarshalJSON implements custom unmarshaling for ServerConfig
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type rawServer struct {
		BaseURL        json.RawMessage `json:"baseURL"`
		Addr           json.RawMessage `json:"addr"`
		Name           string          `json:"name"`
		AllowedOrigins []string        `json:"allowedOrigins"`
	}

	var raw rawServer
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Name = raw.Name
	s.AllowedOrigins = raw.AllowedOrigins
	if err := parseOptional(raw.BaseURL, "baseURL", &s.BaseURL); err != nil {
		return err
	}
	return parseOptional(raw.Addr, "addr", &s.Addr)
}

// UnmarshalJSON implements custom unmarshaling for ORCIDConfig
func (o *ORCIDConfig) UnmarshalJSON(data []byte) error {
	type rawORCID struct {
		ClientID        json.RawMessage `json:"clientId"`
		ClientSecret    json.RawMessage `json:"clientSecret"`
		BaseURL         json.RawMessage `json:"baseUrl"`
		APIBaseURL      json.RawMessage `json:"apiBaseUrl"`
		RedirectURI     json.RawMessage `json:"redirectUri"`
		Scope           string          `json:"scope"`
		ExchangeTimeout string          `json:"exchangeTimeout"`
	}

	var raw rawORCID
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.Scope = raw.Scope
	if err := parseDuration(raw.ExchangeTimeout, "exchangeTimeout", &o.ExchangeTimeout); err != nil {
		return err
	}

	fields := []struct {
		raw  json.RawMessage
		name string
		dst  *string
	}{
		{raw.ClientID, "clientId", &o.ClientID},
		{raw.BaseURL, "baseUrl", &o.BaseURL},
		{raw.APIBaseURL, "apiBaseUrl", &o.APIBaseURL},
		{raw.RedirectURI, "redirectUri", &o.RedirectURI},
	}
	for _, f := range fields {
		if err := parseOptional(f.raw, f.name, f.dst); err != nil {
			return err
		}
	}

	var secret string
	if err := parseOptional(raw.ClientSecret, "clientSecret", &secret); err != nil {
		return err
	}
	o.ClientSecret = Secret(secret)
	return nil
}

// UnmarshalJSON implements custom unmarshaling for StorageConfig
func (s *StorageConfig) UnmarshalJSON(data []byte) error {
	type rawStorage struct {
		Kind                StorageKind     `json:"kind"`
		GCPProject          json.RawMessage `json:"gcpProject"`
		FirestoreDatabase   string          `json:"firestoreDatabase"`
		FirestoreCollection string          `json:"firestoreCollection"`
		RedisURL            json.RawMessage `json:"redisUrl"`
		RedisKeyPrefix      string          `json:"redisKeyPrefix"`
	}

	var raw rawStorage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Kind = raw.Kind
	s.FirestoreDatabase = raw.FirestoreDatabase
	s.FirestoreCollection = raw.FirestoreCollection
	s.RedisKeyPrefix = raw.RedisKeyPrefix
	if err := parseOptional(raw.GCPProject, "gcpProject", &s.GCPProject); err != nil {
		return err
	}

	var redisURL string
	if err := parseOptional(raw.RedisURL, "redisUrl", &redisURL); err != nil {
		return err
	}
	s.RedisURL = Secret(redisURL)
	return nil
}

// UnmarshalJSON implements custom unmarshaling for PipelineConfig
func (p *PipelineConfig) UnmarshalJSON(data []byte) error {
	type rawPipeline struct {
		UpstreamURL json.RawMessage `json:"upstreamUrl"`
		Timeout     string          `json:"timeout"`
	}

	var raw rawPipeline
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if err := parseDuration(raw.Timeout, "timeout", &p.Timeout); err != nil {
		return err
	}
	return parseOptional(raw.UpstreamURL, "upstreamUrl", &p.UpstreamURL)
}
