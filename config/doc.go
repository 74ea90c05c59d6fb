// Package config provides configuration loading and validation for
// pipeline jobs.
//
// It uses Viper to load configuration from YAML files and environment
// variables, with .env support via godotenv. Jobs embed RunConfig in
// their own config structs and extend ApplyDefaults/Validate.
//
// # Usage
//
//	var cfg RunConfig
//	err := config.Load("render-job", &cfg)
//	cfg.ApplyDefaults()
//	err = cfg.Validate()
package config
