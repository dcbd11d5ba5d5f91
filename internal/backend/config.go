package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"spendtrace/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %s)",
			appConfig.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}

	cfg := Config{
		Type:            backendType,
		GoogleSheetName: appConfig.GoogleSheetName,
		Timeout:         appConfig.HTTPTimeout,
	}

	if backendType == MemoryBackend {
		directory, err := config.ParseDirectory(appConfig.LedgerDirectory)
		if err != nil {
			return Config{}, err
		}
		seen := map[string]bool{}
		for _, id := range directory {
			seen[id] = true
		}
		if appConfig.GoogleSpreadsheetID != "" {
			seen[appConfig.GoogleSpreadsheetID] = true
		}
		for id := range seen {
			cfg.SeedLedgers = append(cfg.SeedLedgers, id)
		}
		sort.Strings(cfg.SeedLedgers)
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %s)", c.Type, strings.Join(GetBackendTypeStrings(), ", "))
	}
	if c.Type == SheetsBackend && c.GoogleSheetName == "" {
		return errors.New("Google Sheet name is required for sheets backend")
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SheetsBackend.String(), MemoryBackend.String()}
}
