package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrNilTarget is returned when Load is called with a nil pointer.
var ErrNilTarget = errors.New("config target must be a non-nil pointer to struct")

var (
	loadDotenvOnce sync.Once

	cacheMu sync.RWMutex
	cache   = make(map[reflect.Type]any)
)

// Load parses environment variables into cfg using its env struct tags.
// The first call for a given type performs the parse; subsequent calls for
// the same type return the cached value. A .env file in the working
// directory is loaded once per process before the first parse; a missing
// file is not an error.
func Load(cfg any) error {
	if cfg == nil {
		return ErrNilTarget
	}

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNilTarget
	}

	loadDotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	typ := rv.Elem().Type()

	cacheMu.RLock()
	cached, ok := cache[typ]
	cacheMu.RUnlock()
	if ok {
		rv.Elem().Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", typ, err)
	}

	cacheMu.Lock()
	cache[typ] = rv.Elem().Interface()
	cacheMu.Unlock()

	return nil
}

// MustLoad is like Load but panics on failure. Useful during startup where a
// missing required variable should stop the process.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// ResetCache clears the per-type config cache. Test hook.
func ResetCache() {
	cacheMu.Lock()
	cache = make(map[reflect.Type]any)
	cacheMu.Unlock()
}
