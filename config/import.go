package config

import "fmt"

// ImportConfig locates the CSV seed data.
type ImportConfig struct {
	Dir         string `json:"dir"`
	LoadOnStart bool   `json:"load_on_start"`
}

// SetDefaults applies sane defaults.
func (c *ImportConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "data"
	}
}

// Validate checks mandatory fields.
func (c ImportConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("import.dir is required")
	}
	return nil
}
