// Package config loads the server configuration from defaults, an optional JSON file,
// the environment (including a .env file) and command-line flags, in that order of priority,
// and validates the result.
//
// The server renders pages through the template bundle named by SSR_BUNDLE
// (-r, default dist/assets/ssr/root.html). Relative paths such as the bundle, ASSETS_DIR and
// FILE_STORAGE_PATH are resolved against the directory of the executable, so a deployed binary
// needs the dist/ tree next to it.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds every setting of the user list server.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	Port                int           `env:"PORT" validate:"gte=0,lte=65535"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`
	PlaceholderURL      string        `env:"PLACEHOLDER_URL" validate:"url"`
	FetchTimeout        time.Duration `env:"FETCH_TIMEOUT" validate:"gt=0"`
	EnableSockets       bool          `env:"ENABLE_SOCKETS"`
	SerializeWrites     bool          `env:"SERIALIZE_WRITES"`
	AssetsDir           string        `env:"ASSETS_DIR"`
	SSRBundle           string        `env:"SSR_BUNDLE" validate:"required"`
	DocumentTitle       string        `env:"DOCUMENT_TITLE"`
	BodyLimit           int64         `env:"BODY_LIMIT" validate:"gt=0"`
	ExposedUserID       string        `env:"EXPOSED_USER_ID" validate:"required,uuid"`
	GenerateUserID      bool          `env:"GENERATE_EXPOSED_USER_ID"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig is the layout of the JSON configuration file.
// Durations are written the way time.ParseDuration expects them, e.g. "5s".
type fileConfig struct {
	RunAddr             *string `json:"server_address"`
	Port                *int    `json:"port"`
	LogLevel            *string `json:"log_level"`
	DBFileName          *string `json:"file_storage_path"`
	DatabaseDSN         *string `json:"database_dsn"`
	DBConnectionTimeout *string `json:"db_connection_timeout"`
	MigrationsDir       *string `json:"migrations_dir"`
	PlaceholderURL      *string `json:"placeholder_url"`
	FetchTimeout        *string `json:"fetch_timeout"`
	EnableSockets       *bool   `json:"enable_sockets"`
	SerializeWrites     *bool   `json:"serialize_writes"`
	AssetsDir           *string `json:"assets_dir"`
	SSRBundle           *string `json:"ssr_bundle"`
	DocumentTitle       *string `json:"document_title"`
	BodyLimit           *int64  `json:"body_limit"`
	ExposedUserID       *string `json:"exposed_user_id"`
	GenerateUserID      *bool   `json:"generate_exposed_user_id"`
}

// DefaultExposedUserID is the x-skillcrucial-user value clients of the front end expect.
const DefaultExposedUserID = "3d240521-5706-4272-a57e-5484ea9a2dcc"

var defaultConfig = Config{
	RunAddr:             ":8090",
	Port:                0,
	LogLevel:            "info",
	DBFileName:          "data/users.json",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "migrations",
	PlaceholderURL:      "https://jsonplaceholder.typicode.com/users",
	FetchTimeout:        30 * time.Second,
	EnableSockets:       false,
	SerializeWrites:     false,
	AssetsDir:           "dist/assets",
	SSRBundle:           "dist/assets/ssr/root.html",
	DocumentTitle:       "Skillcrucial",
	BodyLimit:           50 << 20,
	ExposedUserID:       DefaultExposedUserID,
	GenerateUserID:      false,
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes how New collects the configuration.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing makes New ignore the command line. Tests use it.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command-line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func newFlagSet(values *Config) *flag.FlagSet {
	flags := flag.NewFlagSet("userlist", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
	flags.IntVar(&values.Port, "port", values.Port, "port to run server, overrides the port of -a")
	flags.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
	flags.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file with the user list")
	flags.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "PostgreSQL connection string")
	flags.StringVar(&values.PlaceholderURL, "p", values.PlaceholderURL, "URL of the default user list")
	flags.BoolVar(&values.EnableSockets, "s", values.EnableSockets, "enable the real-time echo channel")
	flags.BoolVar(&values.SerializeWrites, "w", values.SerializeWrites, "serialize every user list operation")
	flags.StringVar(&values.SSRBundle, "r", values.SSRBundle, "server-side rendering bundle")
	flags.StringVar(&values.ConfigFile, "c", values.ConfigFile, "JSON configuration file")

	return flags
}

// New collects the configuration: defaults < JSON file < environment < flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                nil,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	var fromFlags Config
	applyDefaults(&fromFlags, defaultConfig)
	setFlags := map[string]bool{}
	if !options.disableFlagsParsing {
		flags := newFlagSet(&fromFlags)
		if err := flags.Parse(options.args); err != nil {
			return nil, err
		}
		flags.Visit(func(f *flag.Flag) {
			setFlags[f.Name] = true
		})
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if setFlags["c"] {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		if err := values.applyJSONFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, err
	}

	values.applyFlags(&fromFlags, setFlags)

	if err := values.clarifyRunAddr(); err != nil {
		return nil, err
	}

	if values.GenerateUserID {
		values.ExposedUserID = uuid.NewString()
	}
	if values.ExposedUserID == "" {
		values.ExposedUserID = DefaultExposedUserID
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func (c *Config) applyJSONFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile fileConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	setString(&c.RunAddr, fromFile.RunAddr)
	setString(&c.LogLevel, fromFile.LogLevel)
	setString(&c.DBFileName, fromFile.DBFileName)
	setString(&c.DatabaseDSN, fromFile.DatabaseDSN)
	setString(&c.MigrationsDir, fromFile.MigrationsDir)
	setString(&c.PlaceholderURL, fromFile.PlaceholderURL)
	setString(&c.AssetsDir, fromFile.AssetsDir)
	setString(&c.SSRBundle, fromFile.SSRBundle)
	setString(&c.DocumentTitle, fromFile.DocumentTitle)
	setString(&c.ExposedUserID, fromFile.ExposedUserID)

	if fromFile.Port != nil {
		c.Port = *fromFile.Port
	}
	if fromFile.EnableSockets != nil {
		c.EnableSockets = *fromFile.EnableSockets
	}
	if fromFile.GenerateUserID != nil {
		c.GenerateUserID = *fromFile.GenerateUserID
	}
	if fromFile.SerializeWrites != nil {
		c.SerializeWrites = *fromFile.SerializeWrites
	}
	if fromFile.BodyLimit != nil {
		c.BodyLimit = *fromFile.BodyLimit
	}

	if err := setDuration(&c.DBConnectionTimeout, fromFile.DBConnectionTimeout); err != nil {
		return err
	}

	return setDuration(&c.FetchTimeout, fromFile.FetchTimeout)
}

func (c *Config) applyFlags(fromFlags *Config, setFlags map[string]bool) {
	if setFlags["a"] {
		c.RunAddr = fromFlags.RunAddr
	}
	if setFlags["port"] {
		c.Port = fromFlags.Port
	}
	if setFlags["l"] {
		c.LogLevel = fromFlags.LogLevel
	}
	if setFlags["f"] {
		c.DBFileName = fromFlags.DBFileName
	}
	if setFlags["d"] {
		c.DatabaseDSN = fromFlags.DatabaseDSN
	}
	if setFlags["p"] {
		c.PlaceholderURL = fromFlags.PlaceholderURL
	}
	if setFlags["s"] {
		c.EnableSockets = fromFlags.EnableSockets
	}
	if setFlags["w"] {
		c.SerializeWrites = fromFlags.SerializeWrites
	}
	if setFlags["r"] {
		c.SSRBundle = fromFlags.SSRBundle
	}
	if setFlags["c"] {
		c.ConfigFile = fromFlags.ConfigFile
	}
}

// clarifyRunAddr replaces the port of RunAddr with Port when the latter is set.
func (c *Config) clarifyRunAddr() error {
	if c.Port == 0 {
		return nil
	}

	host, _, err := net.SplitHostPort(c.RunAddr)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/clarifyRunAddr(): error while `net.SplitHostPort()` calling: %w", err)
	}
	c.RunAddr = net.JoinHostPort(host, strconv.Itoa(c.Port))

	return nil
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

func setDuration(target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/setDuration(): error while `time.ParseDuration()` calling: %w", err)
	}
	*target = parsed

	return nil
}
