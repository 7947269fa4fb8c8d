package storage

import "time"

// Config selects the S3 compatible bucket the gamedata is published to and read from.
type Config struct {
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	Bucket    string `mapstructure:"bucket" default:"gamedata"`
	// Region is only sent when creating the bucket and signing requests. Empty lets the
	// server decide.
	Region string `mapstructure:"region" default:""`
	// Timeout bounds dialing, the TLS handshake and the wait for response headers.
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`
}

// host strips a URL scheme from Endpoint; minio only accepts host:port.
func (c Config) host() string {
	for _, scheme := range []string{"https://", "http://"} {
		if len(c.Endpoint) > len(scheme) && c.Endpoint[:len(scheme)] == scheme {
			return c.Endpoint[len(scheme):]
		}
	}
	return c.Endpoint
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
