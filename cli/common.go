package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/procflow/procflow/repo"
)

// repoConfig is the JSON shape of the --repo-config file. It seeds the
// in-memory repository services of the embedded engine.
type repoConfig struct {
	CompanyHome    string                `json:"companyHome"`
	Messages       map[string]string     `json:"messages"`
	People         []repo.Person         `json:"people"`
	TenantsEnabled bool                  `json:"tenantsEnabled"`
	Types          []repo.TypeDefinition `json:"types"`
}

func loadRepoConfig(fileName string) (repoConfig, error) {
	config := repoConfig{CompanyHome: "workspace://SpacesStore/company-home"}

	if fileName == "" {
		return config, nil
	}

	b, err := os.ReadFile(fileName)
	if err != nil {
		return config, fmt.Errorf("failed to read repository config %s: %v", fileName, err)
	}
	if err := json.Unmarshal(b, &config); err != nil {
		return config, fmt.Errorf("failed to unmarshal repository config %s: %v", fileName, err)
	}
	return config, nil
}

// mapProperties converts name=value flag pairs into typed property values.
// Booleans, integers and RFC 3339 timestamps are detected, anything else
// stays a string.
func mapProperties(valueMap map[string]string) map[string]any {
	if len(valueMap) == 0 {
		return nil
	}

	properties := make(map[string]any, len(valueMap))
	for name, value := range valueMap {
		properties[name] = parsePropertyValue(value)
	}
	return properties
}

func parsePropertyValue(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return value
}
