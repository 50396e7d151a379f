package database

// Config holds configuration for the database connection.
type Config struct {
	// Driver is the database driver (sqlite, mysql, postgres).
	Driver string `mapstructure:"driver" default:"sqlite"`
	// Host is the database host. Ignored for sqlite.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port. Zero selects the driver default.
	Port int `mapstructure:"port" default:"0"`
	// User is the database user.
	User string `mapstructure:"user" default:"diary"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name, or the file path for sqlite (":memory:" allowed).
	Name string `mapstructure:"name" default:"diary.db"`
	// SSLMode is passed to postgres.
	SSLMode string `mapstructure:"ssl_mode" default:"disable"`
	// TimeoutSeconds bounds connection setup and the initial ping.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxOpenConns caps the pool for server databases. sqlite always uses one.
	MaxOpenConns int `mapstructure:"max_open_conns" default:"25"`
	// AutoMigrate creates or updates the schema on startup.
	AutoMigrate bool `mapstructure:"auto_migrate" default:"true"`
}

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// port returns the configured port or the driver default.
func (c Config) port() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Driver == DriverPostgres {
		return 5432
	}
	return 3306
}
