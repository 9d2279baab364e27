// Package config manages e6dl settings.
//
// Settings live in a JSON file loaded with Load; a missing file yields
// DefaultSettings. Command-line flags override individual fields after
// loading, so the file only needs to carry the values the user wants to
// pin.
package config
