package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Job store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// Artifact store drivers.
const (
	ArtifactDriverFS     = "fs"
	ArtifactDriverS3     = "s3"
	ArtifactDriverMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Schemas   SchemasConfig     `yaml:"schemas"`
	Store     StoreConfig       `yaml:"store"`
	Artifacts ArtifactsConfig   `yaml:"artifacts"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Schemas.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Artifacts.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SchemasConfig holds the schema catalog directory configuration.
type SchemasConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the schemas configuration.
func (c *SchemasConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// StoreConfig holds job store configuration.
//
// Driver selects the backing database:
//   - "sqlite" (default): SQLitePath must be non-empty.
//   - "postgres": PostgresDSN must be non-empty.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StoreDriverSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(StoreDriverSQLite, StoreDriverPostgres)),
	); err != nil {
		return err
	}
	if c.Driver == StoreDriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("store: driver is %q but sqlite_path is empty", StoreDriverSQLite)
	}
	if c.Driver == StoreDriverPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("store: driver is %q but postgres_dsn is empty", StoreDriverPostgres)
	}
	return nil
}

// ArtifactsConfig holds artifact store configuration.
type ArtifactsConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible object storage configuration. Endpoint and
// PathStyle support MinIO and other non-AWS deployments.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Validate validates the artifacts configuration.
func (c *ArtifactsConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = ArtifactDriverFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(ArtifactDriverFS, ArtifactDriverS3, ArtifactDriverMemory)),
	); err != nil {
		return err
	}
	if c.Driver == ArtifactDriverFS && c.FSRoot == "" {
		return fmt.Errorf("artifacts: driver is %q but fs_root is empty", ArtifactDriverFS)
	}
	if c.Driver == ArtifactDriverS3 && c.S3.Bucket == "" {
		return fmt.Errorf("artifacts: driver is %q but s3.bucket is empty", ArtifactDriverS3)
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Schemas: SchemasConfig{
			Dir:   "./schemas",
			Watch: true,
		},
		Store: StoreConfig{
			Driver:     StoreDriverSQLite,
			SQLitePath: "./idftab.db",
		},
		Artifacts: ArtifactsConfig{
			Driver: ArtifactDriverFS,
			FSRoot: "./artifacts",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
