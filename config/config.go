package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server      Server
	Database    Database
	Gemini      Gemini
	Archive     Archive
	Sessions    Sessions
	Invitations Invitations
	Dispatcher  Dispatcher
	Log         Log
}

type Server struct {
	Port    string
	GinMode string
}

type Database struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file, ":memory:" allowed
}

type Gemini struct {
	ApiKey string
	Model  string
}

type Archive struct {
	Backend    string // "local" or "gcs"
	BaseDir    string
	GCSBucket  string
	GCSPrefix  string
	OnFinalize bool
}

type Sessions struct {
	// ReuseActive returns the newest unfinished session for (user, test)
	// instead of creating another one.
	ReuseActive bool
}

type Invitations struct {
	TTL time.Duration
}

type Dispatcher struct {
	Schedule      string
	BatchSize     int
	LeaseDuration time.Duration
}

type Log struct {
	Level  string
	Pretty bool
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_PATH", "humaniq.db")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("ARCHIVE_BACKEND", "local")
	viper.SetDefault("ARCHIVE_BASE_DIR", "./archives")
	viper.SetDefault("ARCHIVE_ON_FINALIZE", false)
	viper.SetDefault("SESSION_REUSE_ACTIVE", false)
	viper.SetDefault("INVITATION_TTL_HOURS", 720)
	viper.SetDefault("DISPATCHER_SCHEDULE", "@every 30s")
	viper.SetDefault("DISPATCHER_BATCH_SIZE", 25)
	viper.SetDefault("DISPATCHER_LEASE_SECONDS", 300)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.GinMode = viper.GetString("GIN_MODE")

	config.Database.Driver = viper.GetString("DATABASE_DRIVER")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")
	config.Database.Path = viper.GetString("DATABASE_PATH")

	config.Gemini.ApiKey = viper.GetString("GEMINI_API_KEY")
	config.Gemini.Model = viper.GetString("GEMINI_MODEL")

	config.Archive.Backend = viper.GetString("ARCHIVE_BACKEND")
	config.Archive.BaseDir = viper.GetString("ARCHIVE_BASE_DIR")
	config.Archive.GCSBucket = viper.GetString("ARCHIVE_GCS_BUCKET")
	config.Archive.GCSPrefix = viper.GetString("ARCHIVE_GCS_PREFIX")
	config.Archive.OnFinalize = viper.GetBool("ARCHIVE_ON_FINALIZE")

	config.Sessions.ReuseActive = viper.GetBool("SESSION_REUSE_ACTIVE")
	config.Invitations.TTL = time.Duration(viper.GetInt("INVITATION_TTL_HOURS")) * time.Hour

	config.Dispatcher.Schedule = viper.GetString("DISPATCHER_SCHEDULE")
	config.Dispatcher.BatchSize = viper.GetInt("DISPATCHER_BATCH_SIZE")
	config.Dispatcher.LeaseDuration = time.Duration(viper.GetInt("DISPATCHER_LEASE_SECONDS")) * time.Second

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Pretty = viper.GetBool("LOG_PRETTY")

	log.Info().
		Str("port", config.Server.Port).
		Str("dbDriver", config.Database.Driver).
		Str("dbHost", config.Database.Host).
		Str("dbName", config.Database.Name).
		Str("archiveBackend", config.Archive.Backend).
		Bool("geminiConfigured", config.Gemini.ApiKey != "").
		Str("dispatcherSchedule", config.Dispatcher.Schedule).
		Msg("Config loaded")
	return &config, nil

}
