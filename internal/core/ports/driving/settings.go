package driving

import "github.com/custodia-labs/kbase/internal/core/domain"

// SettingsService resolves application settings from configuration
// and environment.
type SettingsService interface {
	// Get returns the resolved settings.
	Get() (*domain.Settings, error)

	// Set stores a configuration value by dotted key and persists it.
	Set(key string, value any) error

	// ConfigPath returns the configuration file location.
	ConfigPath() string
}
