// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvConfigFile is the environment variable naming the YAML configuration file of the server
	EnvConfigFile = "NOTIFICATION_CONFIG"

	// EnvServerAddress is the environment variable holding the API address used by notifyctl
	EnvServerAddress = "NOTIFICATION_SERVER_ADDRESS"
)

// DefaultConfigFile is read when EnvConfigFile is not set. A missing file is not an error.
const DefaultConfigFile = "config.yaml"
