// Package config loads speakerid configuration with Viper.
//
// LoadConfig reads the first of ./cmd/<service>/config.yml,
// ./config/config.yml and ./config.yml, loads a .env file if one is found,
// and lets the environment override any key:
//
//	MATCHING_SIMILARITY_THRESHOLD=0.6 speakerid attribute ...
//
// ServiceConfig carries the fields every binary needs and is embedded with
// mapstructure:",squash".
package config
