package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	LoginConfig
	StorageConfig
	SecurityConfig
	TelemetryConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
}

type LoginConfig interface {
	GetIdentityProviderURL() string
	GetIssuerURL() string
	GetStorageKey() string
	GetToastDuration() time.Duration
	GetFlowTimeout() time.Duration
	GetVerifyOnSelect() bool
}

type TelemetryConfig interface {
	GetOTelEndpoint() string
}

type mainConfig struct {
	EnvVars
	Login
	Storage
	Security
	Telemetry
}

// New loads the configuration from the environment, applying defaults for
// anything unset.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config New] parse env: %w", err)
	}
	return c, nil
}

// Login holds the settings of the login flow itself.
type Login struct {
	IdentityProviderURL string        `env:"IDENTITY_PROVIDER_URL" envDefault:"http://localhost:8090"`
	IssuerURL           string        `env:"ISSUER_URL"`
	StorageKey          string        `env:"STORAGE_KEY" envDefault:"__pb_oauth2_cache__"`
	ToastDuration       time.Duration `env:"TOAST_DURATION" envDefault:"4s"`
	FlowTimeout         time.Duration `env:"FLOW_TIMEOUT" envDefault:"30m"`
	VerifyOnSelect      bool          `env:"VERIFY_ON_SELECT" envDefault:"false"`
}

var _ LoginConfig = Login{}

func (l Login) GetIdentityProviderURL() string {
	return l.IdentityProviderURL
}

func (l Login) GetIssuerURL() string {
	return l.IssuerURL
}

func (l Login) GetStorageKey() string {
	return l.StorageKey
}

func (l Login) GetToastDuration() time.Duration {
	return l.ToastDuration
}

func (l Login) GetFlowTimeout() time.Duration {
	return l.FlowTimeout
}

func (l Login) GetVerifyOnSelect() bool {
	return l.VerifyOnSelect
}

type Telemetry struct {
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

var _ TelemetryConfig = Telemetry{}

func (t Telemetry) GetOTelEndpoint() string {
	return t.OTelEndpoint
}
