package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetRateLimitPerMinute() int
	GetTrustedProxies() []string
}

type Security struct {
	EnableRateLimiting bool `env:"ENABLE_RATE_LIMITING" envDefault:"false"`
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	// TrustedProxies lists the addresses or CIDR ranges whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

var _ SecurityConfig = Security{}

func (s Security) GetEnableRateLimiting() bool {
	return s.EnableRateLimiting
}

func (s Security) GetRateLimitPerMinute() int {
	return s.RateLimitPerMinute
}

func (s Security) GetTrustedProxies() []string {
	return s.TrustedProxies
}
