// Package config defines the node settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings are read from zensor-settings.yaml, then an optional .env file is
// merged into the environment and ZENSOR_* variables override selected fields.
package config
