package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("abspath", ValidateAbsPath)
	validate.RegisterValidation("identifier", ValidateIdentifier)

	if err := validate.Struct(c); err != nil {
		return err
	}

	return nil
}

func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vault.default_upload_limit", 5)
	v.SetDefault("vault.retention_days", 30)
	v.SetDefault("vault.sweep_hour", 0)
	v.SetDefault("vault.timezone", "UTC")
	v.SetDefault("vault.session_idle_seconds", 600)
	v.SetDefault("vault.list_page_size", 10)
	v.SetDefault("roles.admin", "Admin")
	v.SetDefault("roles.uploader", "Uploader")
	v.SetDefault("fetch.ytdlp_path", "yt-dlp")
	v.SetDefault("fetch.ffprobe_path", "ffprobe")
	v.SetDefault("fetch.ffmpeg_path", "ffmpeg")
	v.SetDefault("fetch.max_height", 720)
	v.SetDefault("fetch.fetch_timeout_seconds", 240)
	v.SetDefault("fetch.probe_timeout_seconds", 30)
}
