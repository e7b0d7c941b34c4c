package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/zensor/internal/logger"
)

// Config holds the wiring and output settings shared by the zensor binaries.
// The temperature threshold and alarm timings are deliberately absent: they are
// fixed in the controller package.
type Config struct {
	// Pins names the GPIO lines driving the indicators.
	Pins Pins `yaml:"pins"`
	// Sensor selects the sensor driver and its data line.
	Sensor Sensor `yaml:"sensor"`
	// Fingerprint describes the memory region sampled for the device fingerprint.
	Fingerprint Fingerprint `yaml:"fingerprint"`
	// ReportOutput is the path of the text report stream, "-" or empty for stdout.
	ReportOutput string `yaml:"report_output"`
	// LogLevel is the minimum structured log level.
	LogLevel string `yaml:"log_level"`
	// Status configures the optional status endpoints.
	Status Status `yaml:"status"`
	// InfluxDB configures the optional sample sink.
	InfluxDB InfluxDB `yaml:"influxdb"`
	// HistoryFile is an optional JSON lines file receiving every sample.
	HistoryFile string `yaml:"history_file"`
}

// Pins holds the GPIO names of the actuators.
type Pins struct {
	// RedLED lights up while the temperature is above the threshold.
	RedLED string `yaml:"red_led"`
	// GreenLED lights up while the temperature is at or below the threshold.
	GreenLED string `yaml:"green_led"`
	// Buzzer is pulsed on alarm.
	Buzzer string `yaml:"buzzer"`
}

// Sensor selects the temperature/humidity source.
type Sensor struct {
	// Driver is either "dht11" or "dummy".
	Driver string `yaml:"driver"`
	// Pin is the GPIO name of the DHT11 data line.
	Pin string `yaml:"pin"`
}

// Fingerprint describes the memory region used as the entropy source.
type Fingerprint struct {
	// Source is an optional raw memory dump; when empty a never-written buffer is used.
	Source string `yaml:"source"`
	// RegionSize is the size of the sampled region in bytes.
	RegionSize int `yaml:"region_size"`
	// Start is the first address sampled.
	Start int `yaml:"start"`
	// Bits is the fingerprint length, a positive multiple of eight.
	Bits int `yaml:"bits"`
}

// Status holds listen addresses of the status endpoints. Empty disables an endpoint.
type Status struct {
	HTTPAddress string `yaml:"http_addr"`
	GRPCAddress string `yaml:"grpc_addr"`
}

// InfluxDB holds connection parameters of the sample sink. Empty URL disables it.
type InfluxDB struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

const (
	// DefaultConfigFilename is the default filename for node settings.
	DefaultConfigFilename = "zensor-settings.yaml"

	// DefaultEnvFilename is loaded into the environment before overrides are applied.
	DefaultEnvFilename = ".env"

	// DefaultLogFilename is where the serial logger appends lines by default.
	DefaultLogFilename = "data_log.txt"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// DriverDHT11 reads a real DHT11 over GPIO.
	DriverDHT11 = "dht11"
	// DriverDummy produces synthetic samples for desktop runs.
	DriverDummy = "dummy"

	defaultRegionSize = 2048
	defaultStart      = 256
	defaultBits       = 256
	defaultLogLevel   = "info"
	defaultBucket     = "zensor"
)

// Environment overrides, applied after the settings file.
const (
	envLogLevel     = "ZENSOR_LOG_LEVEL"
	envSensorDriver = "ZENSOR_SENSOR_DRIVER"
	envHTTPAddress  = "ZENSOR_HTTP_ADDR"
	envGRPCAddress  = "ZENSOR_GRPC_ADDR"
	envInfluxURL    = "ZENSOR_INFLUXDB_URL"
	envInfluxToken  = "ZENSOR_INFLUXDB_TOKEN"
	envInfluxOrg    = "ZENSOR_INFLUXDB_ORG"
	envInfluxBucket = "ZENSOR_INFLUXDB_BUCKET"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPinRequired is returned when an actuator or sensor pin is missing.
	errPinRequired = errors.New("pin name must be provided")
	// errUnknownDriver is returned for an unsupported sensor driver.
	errUnknownDriver = errors.New("unknown sensor driver")
	// errInvalidRegion is returned for a malformed fingerprint region.
	errInvalidRegion = errors.New("invalid fingerprint region")
	// errUnknownLogLevel is returned when the log level cannot be parsed.
	errUnknownLogLevel = errors.New("unknown log level")
	// errInfluxIncomplete is returned when InfluxDB is enabled without org or bucket.
	errInfluxIncomplete = errors.New("influxdb org and bucket must be provided")
)

// Default returns the settings matching the reference wiring.
func Default() *Config {
	return &Config{
		Pins: Pins{
			RedLED:   "GPIO3",
			GreenLED: "GPIO2",
			Buzzer:   "GPIO4",
		},
		Sensor: Sensor{
			Driver: DriverDHT11,
			Pin:    "GPIO7",
		},
		Fingerprint: Fingerprint{
			RegionSize: defaultRegionSize,
			Start:      defaultStart,
			Bits:       defaultBits,
		},
		LogLevel: defaultLogLevel,
	}
}

// Load reads configuration from the provided path, applies environment
// overrides and validates the result. A missing file at the default path
// yields the default settings.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if !explicit {
		path = DefaultConfigFilename
	}

	if err := godotenv.Load(DefaultEnvFilename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry an InfluxDB token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults for optional fields.
//
//nolint:cyclop // A flat list of checks reads better than helpers here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Pins.RedLED == "" || cfg.Pins.GreenLED == "" || cfg.Pins.Buzzer == "" {
		return fmt.Errorf("actuators: %w", errPinRequired)
	}

	if cfg.Sensor.Driver == "" {
		cfg.Sensor.Driver = DriverDHT11
	}

	switch cfg.Sensor.Driver {
	case DriverDHT11:
		if cfg.Sensor.Pin == "" {
			return fmt.Errorf("sensor: %w", errPinRequired)
		}
	case DriverDummy:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, cfg.Sensor.Driver)
	}

	if err := validateFingerprint(&cfg.Fingerprint); err != nil {
		return err
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	for _, address := range []string{cfg.Status.HTTPAddress, cfg.Status.GRPCAddress} {
		if address == "" {
			continue
		}

		if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
			return fmt.Errorf("invalid status address: %w", err)
		}
	}

	return validateInflux(&cfg.InfluxDB)
}

// validateFingerprint checks the fingerprint region and fills in defaults.
func validateFingerprint(fp *Fingerprint) error {
	if fp.RegionSize == 0 {
		fp.RegionSize = defaultRegionSize
	}

	if fp.Bits == 0 {
		fp.Bits = defaultBits
	}

	switch {
	case fp.RegionSize < 0:
		return fmt.Errorf("%w: region size %d", errInvalidRegion, fp.RegionSize)
	case fp.Start < 0:
		return fmt.Errorf("%w: start %d", errInvalidRegion, fp.Start)
	case fp.Bits < 0 || fp.Bits%8 != 0:
		return fmt.Errorf("%w: bits %d is not a positive multiple of 8", errInvalidRegion, fp.Bits)
	}

	return nil
}

// validateInflux checks the sink settings when the sink is enabled.
func validateInflux(db *InfluxDB) error {
	if db.URL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(db.URL); err != nil {
		return fmt.Errorf("invalid influxdb url: %w", err)
	}

	if db.Bucket == "" {
		db.Bucket = defaultBucket
	}

	if db.Org == "" {
		return errInfluxIncomplete
	}

	return nil
}

// applyEnv overrides settings from ZENSOR_* environment variables.
func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		envLogLevel:     &cfg.LogLevel,
		envSensorDriver: &cfg.Sensor.Driver,
		envHTTPAddress:  &cfg.Status.HTTPAddress,
		envGRPCAddress:  &cfg.Status.GRPCAddress,
		envInfluxURL:    &cfg.InfluxDB.URL,
		envInfluxToken:  &cfg.InfluxDB.Token,
		envInfluxOrg:    &cfg.InfluxDB.Org,
		envInfluxBucket: &cfg.InfluxDB.Bucket,
	}

	for key, field := range overrides {
		if value, ok := os.LookupEnv(key); ok {
			*field = strings.TrimSpace(value)
		}
	}
}
