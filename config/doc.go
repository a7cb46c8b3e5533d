// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the seed endpoint fleet, background sampling,
// registration rate limiting and logging.
package config
