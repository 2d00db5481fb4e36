package config

type Config struct {
	Debug    bool     `mapstructure:"debug"`
	Vault    Vault    `mapstructure:"vault"`
	Roles    Roles    `mapstructure:"roles"`
	Fetch    Fetch    `mapstructure:"fetch"`
	Objects  Objects  `mapstructure:"objects"`
	Metadata Metadata `mapstructure:"metadata"`
}

type Vault struct {
	DefaultUploadLimit int    `mapstructure:"default_upload_limit" validate:"min=0"`
	RetentionDays      int    `mapstructure:"retention_days" validate:"required,min=1"`
	SweepHour          int    `mapstructure:"sweep_hour" validate:"min=0,max=23"`
	Timezone           string `mapstructure:"timezone" validate:"required"`
	SessionIdleSeconds int    `mapstructure:"session_idle_seconds" validate:"required,min=30"`
	ListPageSize       int    `mapstructure:"list_page_size" validate:"required,min=1,max=25"`
}

type Roles struct {
	Admin    string `mapstructure:"admin" validate:"required"`
	Uploader string `mapstructure:"uploader" validate:"required"`
}

type Fetch struct {
	YtdlpPath           string `mapstructure:"ytdlp_path"`
	FfprobePath         string `mapstructure:"ffprobe_path"`
	FfmpegPath          string `mapstructure:"ffmpeg_path"`
	TempDir             string `mapstructure:"temp_dir" validate:"omitempty,abspath"`
	MaxHeight           int    `mapstructure:"max_height" validate:"required,min=144"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" validate:"required,min=1"`
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds" validate:"required,min=1"`
}

type Objects struct {
	Strategy      string                    `mapstructure:"strategy" validate:"required,oneof=s3 filesystem"`
	PublicBaseUrl string                    `mapstructure:"public_base_url" validate:"required,url"`
	S3            *S3ObjectStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
	Filesystem    *FilesystemObjectStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
}

type S3ObjectStrategy struct {
	AccessKeyId string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId string `mapstructure:"secret_key_id" validate:"required"`
	Region      string `mapstructure:"region" validate:"required"`
	Bucket      string `mapstructure:"bucket" validate:"required"`
	Endpoint    string `mapstructure:"endpoint"`
}

type FilesystemObjectStrategy struct {
	Path string `mapstructure:"path" validate:"required,abspath"`
}

type Metadata struct {
	Strategy    string               `mapstructure:"strategy" validate:"required,oneof=sql d1"`
	TablePrefix *string              `mapstructure:"table_prefix" validate:"omitempty,identifier"`
	SQL         *SQLMetadataStrategy `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1          *D1MetadataStrategy  `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type SQLMetadataStrategy struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres mysql sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

type D1MetadataStrategy struct {
	AccountID  string `mapstructure:"account_id" validate:"required"`
	DatabaseID string `mapstructure:"database_id" validate:"required"`
	APIToken   string `mapstructure:"api_token" validate:"required"`
	Endpoint   string `mapstructure:"endpoint" validate:"omitempty,url"`
}
