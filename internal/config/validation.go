package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

var bashStyleRegex = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", "version field is required. Hint: Add \"version\": %q", SupportedVersion)
	} else if version != SupportedVersion {
		result.addError("version", "unsupported version '%s' - use '%s'", version, SupportedVersion)
	}

	validateServerStructure(rawConfig, result)
	validateORCIDStructure(rawConfig, result)
	validateStorageStructure(rawConfig, result)
	validatePipelineStructure(rawConfig, result)

	return result, nil
}

func validateServerStructure(rawConfig map[string]any, result *ValidationResult) {
	server, ok := rawConfig["server"].(map[string]any)
	if !ok {
		result.addError("server", "server field is required and must be an object")
		return
	}

	if _, ok := server["baseURL"]; !ok {
		result.addError("server.baseURL", "baseURL is required. Example: \"https://hub.example.org\"")
	}
	if _, ok := server["addr"]; !ok {
		result.addError("server.addr", "addr is required. Example: \":8080\" or \"0.0.0.0:8080\"")
	}
	if origins, ok := server["allowedOrigins"].([]any); !ok || len(origins) == 0 {
		result.addWarning("server.allowedOrigins", "no allowed origins configured - browsers on other origins cannot call the API")
	}
}

func validateORCIDStructure(rawConfig map[string]any, result *ValidationResult) {
	orcid, ok := rawConfig["orcid"].(map[string]any)
	if !ok {
		result.addError("orcid", "orcid field is required and must be an object")
		return
	}

	for _, field := range []string{"clientId", "redirectUri"} {
		if _, ok := orcid[field]; !ok {
			result.addError("orcid."+field, "%s is required", field)
		}
	}

	if secret, ok := orcid["clientSecret"]; !ok {
		result.addError("orcid.clientSecret", "clientSecret is required. Hint: Use {\"$env\": \"ORCID_CLIENT_SECRET\"}")
	} else if verr := validateEnvVarReference(secret, "clientSecret", "orcid.clientSecret"); verr != nil {
		result.Errors = append(result.Errors, *verr)
	}

	if base, ok := orcid["baseUrl"].(string); ok && strings.Contains(base, "sandbox") {
		result.addWarning("orcid.baseUrl", "using the ORCID sandbox (%s) - real researchers cannot sign in", base)
	}
	if scope, ok := orcid["scope"].(string); ok && scope != "" && scope != "/authenticate" {
		result.addWarning("orcid.scope", "scope '%s' asks for more than sign-in; only /authenticate is needed", scope)
	}
}

func validateStorageStructure(rawConfig map[string]any, result *ValidationResult) {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		result.addWarning("storage", "no storage configured - defaulting to memory, profiles are lost on restart")
		return
	}

	kind, _ := storage["kind"].(string)
	switch StorageKind(kind) {
	case "", StorageMemory:
		result.addWarning("storage.kind", "memory storage loses profiles on restart")
	case StorageFirestore:
		if _, ok := storage["gcpProject"]; !ok {
			result.addError("storage.gcpProject", "gcpProject is required when using firestore storage")
		}
	case StorageRedis:
		redisURL, ok := storage["redisUrl"]
		if !ok {
			result.addError("storage.redisUrl", "redisUrl is required when using redis storage")
		} else if verr := validateEnvVarReference(redisURL, "redisUrl", "storage.redisUrl"); verr != nil {
			// Redis URLs often carry passwords but local ones do not
			result.Warnings = append(result.Warnings, *verr)
		}
	default:
		result.addError("storage.kind", "unknown storage kind '%s'. Options: memory, firestore, redis", kind)
	}
}

func validatePipelineStructure(rawConfig map[string]any, result *ValidationResult) {
	pipeline, ok := rawConfig["pipeline"].(map[string]any)
	if !ok {
		return
	}
	if _, ok := pipeline["upstreamUrl"]; !ok {
		result.addError("pipeline.upstreamUrl", "upstreamUrl is required when pipeline is configured")
	}
}

// validateEnvVarReference validates that a field uses proper env var reference format
func validateEnvVarReference(value any, fieldName, path string) *ValidationError {
	switch v := value.(type) {
	case string:
		if matches := bashStyleRegex.FindStringSubmatch(v); len(matches) > 1 {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", v, matches[1]),
			}
		}
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must use environment variable reference {\"$env\": \"YOUR_ENV_VAR\"} instead of plain text. Hint: This prevents secrets from being stored in config files", fieldName),
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; !hasEnv {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s must use {\"$env\": \"YOUR_ENV_VAR\"} format", fieldName),
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be an environment variable reference {\"$env\": \"YOUR_ENV_VAR\"}, not %T", fieldName, value),
		}
	}
}

// checkBashStyleSyntax recursively checks for bash-style env var syntax
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.addWarning(path, "found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName)
		}
	case map[string]any:
		// Skip if this is already an env ref
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
