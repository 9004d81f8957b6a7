// Package config defines the settings of the alarm-dispatch bot and provides
// helpers to load, validate and save them in YAML format.
//
// Secrets (the dispatch client secret and the Messenger page tokens) can be
// kept out of the YAML file: Load overlays them from the environment, reading
// a .env file first when one is present.
package config
