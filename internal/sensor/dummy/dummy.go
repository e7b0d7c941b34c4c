package dummy

import (
	"context"
	"math/rand/v2"

	"periph.io/x/conn/v3/physic"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/sensor/dht11"
)

const (
	minTemperature = physic.ZeroCelsius + 20*physic.Celsius
	maxTemperature = physic.ZeroCelsius + 40*physic.Celsius
	minHumidity    = 30 * physic.PercentRH
	maxHumidity    = 70 * physic.PercentRH
)

// Sensor random-walks temperature and humidity inside plausible indoor bounds,
// crossing the alarm threshold from time to time.
type Sensor struct {
	rng *rand.Rand
	env physic.Env
}

// New returns a dummy sensor seeded for reproducible sequences.
func New(seed uint64) *Sensor {
	return &Sensor{
		rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)), //nolint:gosec // Not security sensitive.
		env: physic.Env{
			Temperature: physic.ZeroCelsius + 28*physic.Celsius,
			Humidity:    45 * physic.PercentRH,
		},
	}
}

// Sense advances the walk and fills env.
func (s *Sensor) Sense(env *physic.Env) {
	s.env.Temperature += physic.Temperature(s.rng.IntN(3)-1) * physic.Celsius
	s.env.Temperature = min(max(s.env.Temperature, minTemperature), maxTemperature)

	s.env.Humidity += physic.RelativeHumidity(s.rng.IntN(5)-2) * physic.PercentRH
	s.env.Humidity = min(max(s.env.Humidity, minHumidity), maxHumidity)

	*env = s.env
}

// Read implements sensor.Sensor. It never fails.
func (s *Sensor) Read(context.Context) (*sample.Sample, error) {
	var env physic.Env

	s.Sense(&env)

	temperature := uint8((env.Temperature - physic.ZeroCelsius) / physic.Celsius)
	humidity := uint8(env.Humidity / physic.PercentRH)

	return &sample.Sample{
		Raw:         dht11.Encode(humidity, temperature),
		Temperature: temperature,
		Humidity:    humidity,
	}, nil
}
