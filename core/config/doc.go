// Package config assembles the application configuration from the environment.
//
// Every section struct declares its keys with `mapstructure` tags and its fallback with
// a `default` tag. LoadConfig registers those defaults with viper, loads an optional
// .env file through godotenv, maps SECTION_KEY variables onto section.key and decodes
// durations such as "5m". Validate then reports all inconsistent settings at once.
//
// Sections: server, storage, log, database, sync (provider settings) and furniture.
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return fmt.Errorf("failed to load config: %w", err)
//	}
package config
