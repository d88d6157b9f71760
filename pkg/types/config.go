package types

// ConfigVersion is the only supported config file version
const ConfigVersion = "1.0"

// NotificationConfig represents desktop notification settings
type NotificationConfig struct {
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty" mapstructure:"enabled"`
	// Sound beeps when a pot is funded
	Sound bool `json:"sound,omitempty" yaml:"sound,omitempty" mapstructure:"sound"`
}

// ServerConfig represents the HTTP API settings
type ServerConfig struct {
	Addr             string `json:"addr" yaml:"addr" mapstructure:"addr"`
	RequestTimeoutMs int    `json:"request_timeout_ms" yaml:"request_timeout_ms" mapstructure:"request_timeout_ms"`
}

// WatchConfig represents ledger watching settings
type WatchConfig struct {
	DebounceMs int `json:"debounce_ms" yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// RecalcConfig represents bulk recalculation settings
type RecalcConfig struct {
	Parallelism int `json:"parallelism" yaml:"parallelism" mapstructure:"parallelism"`
}

// MoneypotConfig is the on-disk application configuration
type MoneypotConfig struct {
	Version       string              `json:"version" yaml:"version" mapstructure:"version"`
	LedgerDir     string              `json:"ledger_dir,omitempty" yaml:"ledger_dir,omitempty" mapstructure:"ledger_dir"`
	User          string              `json:"user,omitempty" yaml:"user,omitempty" mapstructure:"user"`
	UserName      string              `json:"user_name,omitempty" yaml:"user_name,omitempty" mapstructure:"user_name"`
	LogLevel      LogLevel            `json:"log_level,omitempty" yaml:"log_level,omitempty" mapstructure:"log_level"`
	LogFile       string              `json:"log_file,omitempty" yaml:"log_file,omitempty" mapstructure:"log_file"`
	Notifications *NotificationConfig `json:"notifications,omitempty" yaml:"notifications,omitempty" mapstructure:"notifications"`
	Server        *ServerConfig       `json:"server,omitempty" yaml:"server,omitempty" mapstructure:"server"`
	Watch         *WatchConfig        `json:"watch,omitempty" yaml:"watch,omitempty" mapstructure:"watch"`
	Recalc        *RecalcConfig       `json:"recalc,omitempty" yaml:"recalc,omitempty" mapstructure:"recalc"`
}

// NotificationsEnabled reports whether desktop notifications are on
func (c *MoneypotConfig) NotificationsEnabled() bool {
	return c.Notifications != nil && c.Notifications.Enabled != nil && *c.Notifications.Enabled
}
