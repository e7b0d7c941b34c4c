package node

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/oshokin/zensor/internal/api/grpc/health"
	"github.com/oshokin/zensor/internal/api/rest"
	"github.com/oshokin/zensor/internal/clock"
	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/controller"
	"github.com/oshokin/zensor/internal/fingerprint"
	"github.com/oshokin/zensor/internal/hardware"
	"github.com/oshokin/zensor/internal/logger"
	"github.com/oshokin/zensor/internal/report"
	"github.com/oshokin/zensor/internal/repository/history"
	"github.com/oshokin/zensor/internal/sensor"
	"github.com/oshokin/zensor/internal/sensor/dht11"
	"github.com/oshokin/zensor/internal/sensor/dummy"
	"github.com/oshokin/zensor/internal/status"
	"github.com/oshokin/zensor/internal/telemetry"
)

// Options controls the node process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the level from the settings file when set.
	LogLevel string
	// Simulate replaces GPIO with in-memory pins and the DHT11 with the dummy sensor.
	Simulate bool
	// Iterations stops the loop after that many passes; zero runs until cancelled.
	Iterations int
	// Output overrides the report stream destination.
	Output io.Writer
}

// Run loads settings, wires the hardware and runs the loop until ctx is
// cancelled. Actuators are driven low on the way out.
//
//nolint:funlen // Wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "zensor-node")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyLogLevel(ctx, cfg.LogLevel, opts.LogLevel)

	sessionID := xid.New().String()
	ctx = logger.WithKV(ctx, "session_id", sessionID)

	region, err := openRegion(cfg.Fingerprint)
	if err != nil {
		return err
	}

	actuators, source, err := openHardware(cfg, opts.Simulate)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg.ReportOutput, opts.Output)
	if err != nil {
		return err
	}

	clk := clock.NewMonotonic()
	ctrl := controller.New(actuators, clk)
	tracker := status.NewTracker(sessionID, time.Now())
	sinks := telemetry.Multi{tracker}

	// release runs once, either on return or from an atexit handler.
	var releaseOnce sync.Once

	release := func() {
		releaseOnce.Do(func() {
			if err := ctrl.Off(); err != nil {
				logger.ErrorKV(ctx, "Failed to release actuators", "error", err)
			}

			if err := sinks.Close(); err != nil {
				logger.ErrorKV(ctx, "Failed to close telemetry", "error", err)
			}

			closeOut()
		})
	}

	atexit.Register(release)
	defer release()

	sinks, servers, err := openTelemetry(ctx, cfg, sessionID, tracker, sinks)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Node started",
		"sensor", cfg.Sensor.Driver,
		"simulate", opts.Simulate,
		"fingerprint_start", cfg.Fingerprint.Start,
		"fingerprint_bits", cfg.Fingerprint.Bits,
	)

	n := newNode(Dependencies{
		Region: region,
		Fingerprint: fingerprint.Options{
			Start: cfg.Fingerprint.Start,
			Bits:  cfg.Fingerprint.Bits,
		},
		Sensor:     source,
		Controller: ctrl,
		Report:     report.NewWriter(out),
		Clock:      clk,
		Sink:       sinks,
	})

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	servers.start(loopCtx)

	err = n.loop(loopCtx, opts.Iterations)

	cancel()
	servers.wait()

	logger.Info(ctx, "Node stopped")

	return err
}

// Fingerprint prints a single fingerprint line using the configured region.
func Fingerprint(_ context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	region, err := openRegion(cfg.Fingerprint)
	if err != nil {
		return err
	}

	fp, err := fingerprint.Generate(region, fingerprint.Options{
		Start: cfg.Fingerprint.Start,
		Bits:  cfg.Fingerprint.Bits,
	})
	if err != nil {
		return fmt.Errorf("generate fingerprint: %w", err)
	}

	return report.NewWriter(out).Fingerprint(fp)
}

// applyLogLevel sets the global level, the override winning over settings.
func applyLogLevel(ctx context.Context, fromConfig, override string) {
	value := fromConfig
	if override != "" {
		value = override
	}

	level, ok := logger.ParseLogLevel(value)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "log_level", value)

		return
	}

	logger.SetLevel(level)
}

// openRegion selects the fingerprint entropy source.
func openRegion(cfg config.Fingerprint) (fingerprint.Region, error) {
	if cfg.Source != "" {
		region, err := fingerprint.LoadDump(cfg.Source, cfg.RegionSize)
		if err != nil {
			return nil, fmt.Errorf("open fingerprint source: %w", err)
		}

		return region, nil
	}

	region, err := fingerprint.NewUninitialized(cfg.RegionSize)
	if err != nil {
		return nil, fmt.Errorf("allocate fingerprint region: %w", err)
	}

	return region, nil
}

// openHardware resolves the actuators and the sensor.
func openHardware(cfg *config.Config, simulate bool) (controller.Actuators, sensor.Sensor, error) {
	if simulate {
		return simulatedActuators(cfg.Pins), dummy.New(uint64(time.Now().UnixNano())), nil //nolint:gosec // Seed only.
	}

	if err := hardware.Init(); err != nil {
		return controller.Actuators{}, nil, err
	}

	actuators, err := hardware.OpenActuators(cfg.Pins)
	if err != nil {
		return controller.Actuators{}, nil, err
	}

	if cfg.Sensor.Driver == config.DriverDummy {
		return actuators, dummy.New(uint64(time.Now().UnixNano())), nil //nolint:gosec // Seed only.
	}

	pin, err := hardware.Pin(cfg.Sensor.Pin)
	if err != nil {
		return controller.Actuators{}, nil, fmt.Errorf("sensor: %w", err)
	}

	return actuators, dht11.New(pin), nil
}

// simulatedActuators returns in-memory pins named after the configured lines.
func simulatedActuators(pins config.Pins) controller.Actuators {
	return controller.Actuators{
		Red:    &gpiotest.Pin{N: pins.RedLED, Num: -1},
		Green:  &gpiotest.Pin{N: pins.GreenLED, Num: -1},
		Buzzer: &gpiotest.Pin{N: pins.Buzzer, Num: -1},
	}
}

// openOutput resolves the report stream destination.
func openOutput(path string, override io.Writer) (io.Writer, func(), error) {
	noop := func() {}

	if override != nil {
		return override, noop, nil
	}

	if path == "" || path == "-" {
		return os.Stdout, noop, nil
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return nil, nil, fmt.Errorf("open report output: %w", err)
	}

	return file, func() { _ = file.Close() }, nil
}

// background holds the optional status servers.
type background struct {
	runs      []func(ctx context.Context) error
	listeners []net.Listener
	wg        sync.WaitGroup
}

// listen opens a TCP listener and keeps it for closeListeners.
func (b *background) listen(ctx context.Context, address string) (net.Listener, error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	b.listeners = append(b.listeners, lis)

	return lis, nil
}

// closeListeners releases listeners of servers that never started.
func (b *background) closeListeners() {
	for _, lis := range b.listeners {
		_ = lis.Close()
	}

	b.listeners = nil
}

// start launches every server; failures are logged.
func (b *background) start(ctx context.Context) {
	for _, run := range b.runs {
		b.wg.Add(1)

		go func() {
			defer b.wg.Done()

			if err := run(ctx); err != nil {
				logger.ErrorKV(ctx, "Status server failed", "error", err)
			}
		}()
	}
}

// wait blocks until every server has returned.
func (b *background) wait() {
	b.wg.Wait()
}

// openTelemetry appends the configured sinks and prepares the status servers.
// Listeners are opened here so that a busy port fails startup.
func openTelemetry(
	ctx context.Context,
	cfg *config.Config,
	sessionID string,
	tracker *status.Tracker,
	sinks telemetry.Multi,
) (telemetry.Multi, *background, error) {
	servers := new(background)

	if cfg.InfluxDB.URL != "" {
		sinks = append(sinks, telemetry.NewInfluxSink(
			cfg.InfluxDB.URL,
			cfg.InfluxDB.Token,
			cfg.InfluxDB.Org,
			cfg.InfluxDB.Bucket,
			sessionID,
		))
	}

	if cfg.HistoryFile != "" {
		sinks = append(sinks, history.NewHistory(cfg.HistoryFile))
	}

	if cfg.Status.HTTPAddress != "" {
		metrics := telemetry.NewMetrics()
		sinks = append(sinks, metrics)

		lis, err := servers.listen(ctx, cfg.Status.HTTPAddress)
		if err != nil {
			return sinks, nil, err
		}

		handler := rest.NewRouter(tracker, metrics.Handler())
		servers.runs = append(servers.runs, func(ctx context.Context) error {
			return rest.Serve(ctx, lis, handler)
		})
	}

	if cfg.Status.GRPCAddress != "" {
		reporter := health.NewReporter()
		sinks = append(sinks, reporter)

		lis, err := servers.listen(ctx, cfg.Status.GRPCAddress)
		if err != nil {
			servers.closeListeners()

			return sinks, nil, err
		}

		servers.runs = append(servers.runs, func(ctx context.Context) error {
			return reporter.Serve(ctx, lis)
		})
	}

	return sinks, servers, nil
}
