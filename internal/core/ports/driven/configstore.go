package driven

// ConfigStore provides typed access to the environment-variable-shaped
// configuration keys recognized by the service (GLOBAL_QPS, PER_DOMAIN_QPS,
// CIRCUIT_BREAKER_ENABLED, ...). The file implementation reads them from a
// TOML file only; it does not read the process environment.
type ConfigStore interface {
	GetString(key string) string
	GetFloat(key string) float64
	GetInt(key string) int
	GetBool(key string) bool

	// Path returns the config file path, empty if none is configured.
	Path() string

	// Load (re)reads configuration from the config file.
	Load() error
}
