// Package config loads server configuration from environment variables
// using envconfig. Every field has a default so a bare environment yields a
// working local viewer bound to 127.0.0.1.
package config
