package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds all configuration options.
type Settings struct {
	// Search settings
	Limit int    `json:"limit"`
	Page  string `json:"page"`
	Pages int    `json:"pages"`
	SFW   bool   `json:"sfw"`

	// Download settings
	OutDir      string   `json:"out_dir"`
	Concurrency int      `json:"concurrency"`
	Groups      []string `json:"groups"`

	// HTTP settings
	UserAgent             string `json:"user_agent"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Limit:       10,
		Page:        "1",
		Pages:       1,
		SFW:         false,
		OutDir:      "./out",
		Concurrency: 5,

		UserAgent:             "e6dl (go edition)",
		RequestTimeoutSeconds: 60,
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
