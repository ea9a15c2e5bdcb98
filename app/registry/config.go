package registry

import "time"

// Config contains the backend connection parameters with environment
// variable mapping, loadable via core/config.
type Config struct {
	BaseURL          string        `env:"CLIENTKIT_BASE_URL,required"`
	AnonKey          string        `env:"CLIENTKIT_ANON_KEY,required"`
	RequestTimeout   time.Duration `env:"CLIENTKIT_REQUEST_TIMEOUT" envDefault:"10s"`
	RefreshLookahead time.Duration `env:"CLIENTKIT_REFRESH_LOOKAHEAD" envDefault:"5m"`
	PrimaryStore     string        `env:"CLIENTKIT_PRIMARY_STORE" envDefault:"plaintext"`
}
