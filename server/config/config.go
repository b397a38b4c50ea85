package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Paths      PathsConfig      `mapstructure:"paths" yaml:"paths"`
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	UpdateOnStart   bool          `mapstructure:"update_on_start" yaml:"update_on_start"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level" yaml:"level"`
	LogPath           string `mapstructure:"log_path" yaml:"log_path"`
	EnableFileLogging bool   `mapstructure:"enable_file_logging" yaml:"enable_file_logging"`
	MaxSizeMB         int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups        int    `mapstructure:"max_backups" yaml:"max_backups"`
}

type PathsConfig struct {
	DownloaderPath string `mapstructure:"downloader_path" yaml:"downloader_path"`
	ProcessorPath  string `mapstructure:"processor_path" yaml:"processor_path"`
	// Root for per-request workspaces. Empty means the platform temp dir.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
}

type ProcessingConfig struct {
	// Re-encode through the processor even when no filter was requested.
	AlwaysProcess bool `mapstructure:"always_process" yaml:"always_process"`
	// Results smaller than this many bytes are logged as probable previews.
	PreviewThreshold int64         `mapstructure:"preview_threshold" yaml:"preview_threshold"`
	PollAttempts     int           `mapstructure:"poll_attempts" yaml:"poll_attempts"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	VersionTimeout   time.Duration `mapstructure:"version_timeout" yaml:"version_timeout"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.update_on_start", false)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_path", "trackdl.log")
	v.SetDefault("logging.enable_file_logging", false)
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("paths.downloader_path", "yt-dlp")
	v.SetDefault("paths.processor_path", "ffmpeg")
	v.SetDefault("paths.work_dir", "")

	v.SetDefault("processing.always_process", false)
	v.SetDefault("processing.preview_threshold", 500_000)
	v.SetDefault("processing.poll_attempts", 10)
	v.SetDefault("processing.poll_interval", 500*time.Millisecond)
	v.SetDefault("processing.version_timeout", 10*time.Second)
}

// Load builds the configuration from defaults, the optional YAML file at path,
// APP_* environment variables and the flags in fs (which may be nil).
// A missing config file is not an error.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, flag := range map[string]string{
			"server.host":           "host",
			"server.port":           "port",
			"logging.level":         "log-level",
			"paths.downloader_path": "downloader",
			"paths.processor_path":  "processor",
		} {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the pipelines cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server.port out of range"))
	}
	if c.Paths.DownloaderPath == "" {
		errs = append(errs, errors.New("paths.downloader_path is empty"))
	}
	if c.Paths.ProcessorPath == "" {
		errs = append(errs, errors.New("paths.processor_path is empty"))
	}
	if c.Processing.PollAttempts <= 0 {
		errs = append(errs, errors.New("processing.poll_attempts must be positive"))
	}
	if c.Processing.PollInterval < 0 {
		errs = append(errs, errors.New("processing.poll_interval is negative"))
	}
	if c.Processing.PreviewThreshold < 0 {
		errs = append(errs, errors.New("processing.preview_threshold is negative"))
	}

	return errors.Join(errs...)
}

// WorkRoot returns the directory job workspaces are created in.
func (c *Config) WorkRoot() string {
	if c.Paths.WorkDir != "" {
		return c.Paths.WorkDir
	}
	return os.TempDir()
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
