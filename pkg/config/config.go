// Package config loads typed configuration structs from the environment.
//
// Fields are described with caarlos0/env tags:
//
//	type Identity struct {
//		Driver   string        `env:"IDENTITY_DRIVER" envDefault:"memory"`
//		Endpoint string        `env:"APPWRITE_ENDPOINT"`
//		Timeout  time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg Identity
//	if err := config.Load(&cfg); err != nil { ... }
//
// A .env file in the working directory is read once before the first parse.
// Successful results are cached per type, so every Load of the same struct
// type observes the same values for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig = errors.New("config.parse_failed")
	ErrNilPointer    = errors.New("config.nil_pointer")
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> *entry
)

// Load parses environment variables into v. See package docs for caching.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDotenv()

	key := reflect.TypeOf(v).Elem()
	raw, _ := cache.LoadOrStore(key, &entry{})
	e := raw.(*entry)

	e.once.Do(func() {
		var fresh T
		if err := env.Parse(&fresh); err != nil {
			e.err = errors.Join(ErrParsingConfig, err)
			return
		}
		e.value = fresh
	})

	if e.err != nil {
		// Failed parses are not cached so a corrected environment can be retried.
		cache.CompareAndDelete(key, e)
		return e.err
	}

	*v = e.value.(T)
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %T: %v", v, err))
	}
}

// Parse parses environment variables into v without touching the cache.
func Parse[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDotenv()
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func loadDotenv() {
	dotenvOnce.Do(func() {
		// Missing .env is fine.
		_ = godotenv.Load()
	})
}
