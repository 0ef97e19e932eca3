package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// S3Config points at the raw telemetry archive. An empty BucketName
// disables archiving.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig holds the secret used to verify tokens issued by the account service.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// IngestConfig guards the internal telemetry endpoint.
type IngestConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// PlannerConfig tunes plan generation.
type PlannerConfig struct {
	DefaultAthleteAge      int           `mapstructure:"default_athlete_age"`
	DefaultBaselineMileage float64       `mapstructure:"default_baseline_mileage"`
	LongRunShare           float64       `mapstructure:"long_run_share"`
	LongRunCap             float64       `mapstructure:"long_run_cap"`
	WeeklyPattern          []string      `mapstructure:"weekly_pattern"`
	LockTTL                time.Duration `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or text
}

// LoadConfig reads configuration from file or environment variables. A .env
// file in path is loaded into the environment first, without overriding
// variables that are already set.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No file; defaults and env vars only.
		err = nil
	} else if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "runplan")
	v.SetDefault("s3.use_ssl", true)
	// AutomaticEnv only sees keys viper already knows about.
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("ingest.api_key", "")
	v.SetDefault("planner.default_athlete_age", 30)
	v.SetDefault("planner.default_baseline_mileage", 20)
	v.SetDefault("planner.long_run_share", 1.0/3)
	v.SetDefault("planner.long_run_cap", 20)
	v.SetDefault("planner.weekly_pattern", []string{"rest", "quality", "easy", "quality", "rest", "long_run", "easy"})
	v.SetDefault("planner.lock_ttl", "2m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
