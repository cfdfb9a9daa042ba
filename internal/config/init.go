package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/notify/natsnotify"
	"git.home.luguber.info/inful/apierror/internal/notify/redisnotify"
)

const exampleHeader = `# apierror configuration
#
# Values may reference environment variables as ${VAR}. Every field can also be
# overridden with an APIERROR_* variable, e.g. APIERROR_LOG_LEVEL=debug.
`

// Example returns the configuration written by Init.
func Example() *Config {
	cfg := Default()
	cfg.Logging.Format = "json"
	cfg.Engine.MaxTrackingSize = 1000
	cfg.Notify.NATS = &NATSConfig{
		URL:     "${NATS_URL}",
		Subject: natsnotify.DefaultSubject,
	}
	cfg.Notify.Redis = &RedisConfig{
		URL:     "${REDIS_URL}",
		Channel: redisnotify.DefaultChannel,
	}
	return cfg
}

// Init writes an example configuration file to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode example configuration").Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to create configuration directory").
				WithContext("path", dir).
				Build()
		}
	}
	if err := os.WriteFile(path, append([]byte(exampleHeader), data...), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
