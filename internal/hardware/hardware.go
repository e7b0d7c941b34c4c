package hardware

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/controller"
)

// ErrPinNotFound is returned when no registered GPIO matches a name.
var ErrPinNotFound = errors.New("gpio pin not found")

var (
	//nolint:gochecknoglobals // host.Init must only run once per process.
	initOnce sync.Once
	//nolint:gochecknoglobals // Result of the single host.Init call.
	initErr error
)

// Init loads the periph.io host drivers. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = fmt.Errorf("init host drivers: %w", err)
		}
	})

	return initErr
}

// Pin looks up a GPIO line by name or number.
func Pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}

	return p, nil
}

// OutputPin looks up a GPIO line and drives it low.
func OutputPin(name string) (gpio.PinIO, error) {
	p, err := Pin(name)
	if err != nil {
		return nil, err
	}

	if err = p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", name, err)
	}

	return p, nil
}

// OpenActuators resolves the indicator pins and drives them low.
func OpenActuators(pins config.Pins) (controller.Actuators, error) {
	red, err := OutputPin(pins.RedLED)
	if err != nil {
		return controller.Actuators{}, fmt.Errorf("red led: %w", err)
	}

	green, err := OutputPin(pins.GreenLED)
	if err != nil {
		return controller.Actuators{}, fmt.Errorf("green led: %w", err)
	}

	buzzer, err := OutputPin(pins.Buzzer)
	if err != nil {
		return controller.Actuators{}, fmt.Errorf("buzzer: %w", err)
	}

	return controller.Actuators{
		Red:    red,
		Green:  green,
		Buzzer: buzzer,
	}, nil
}
