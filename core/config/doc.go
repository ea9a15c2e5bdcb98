// Package config loads environment variables into tagged structs and caches
// the result per type, so every component that asks for the same
// configuration sees the same values.
//
// A .env file in the working directory is loaded once per process before the
// first parse; a missing file is not an error. Parsing is handled by the
// caarlos0/env library.
//
// Basic usage:
//
//	import "github.com/scriptorium/clientkit/core/config"
//
//	type BackendConfig struct {
//		BaseURL string `env:"CLIENTKIT_BASE_URL,required"`
//		AnonKey string `env:"CLIENTKIT_ANON_KEY,required"`
//		Timeout int    `env:"CLIENTKIT_TIMEOUT_SECONDS" envDefault:"10"`
//	}
//
//	func main() {
//		var cfg BackendConfig
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is parsed once per process; later Load calls for
// the same type copy the cached value, so environment changes after the
// first load are not observed:
//
//	var first BackendConfig
//	config.Load(&first) // parses the environment
//
//	var second BackendConfig
//	config.Load(&second) // cache hit, first == second
//
// Different struct types are cached independently. Tests that mutate the
// environment call ResetCache between cases.
package config
