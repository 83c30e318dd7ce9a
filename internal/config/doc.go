// Package config provides loading and environment overlay for Pigeon runtime
// configuration. It exposes a Default() baseline that a JSON or YAML file and
// PIGEON_* environment variables can override.
//
// Example:
//
//	cfg, err := config.Load("/etc/pigeon.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{DataDir: config.DefaultDataDir(), Config: cfg})
//	defer rt.Close()
package config
