package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/queue-sim/sim/trace"
)

// Distribution families accepted for inter-arrival and service times.
const (
	DistExponential = "exponential"
	DistUniform     = "uniform"
	DistConstant    = "constant"
)

var validDistributions = map[string]bool{
	DistExponential: true,
	DistUniform:     true,
	DistConstant:    true,
	"":              true, // empty defaults to exponential
}

// IsValidDistribution reports whether name is a recognized distribution family.
func IsValidDistribution(name string) bool {
	return validDistributions[name]
}

// Config holds every simulation parameter. It is read at run start and must
// not change during a run; use Simulator.SetConfig to replace it between runs.
// All times are in milliseconds.
type Config struct {
	BufferSize       int     `yaml:"buffer_size" json:"buffer_size"`               // queue capacity S (packet in service not included)
	BufferSizes      []int   `yaml:"buffer_sizes" json:"buffer_sizes"`             // capacities compared by the buffer studies
	MaxBufferSize    int     `yaml:"max_buffer_size" json:"max_buffer_size"`       // upper bound of the minimum-buffer search
	InterArrivalTime float64 `yaml:"inter_arrival_time" json:"inter_arrival_time"` // mean inter-arrival time (1/lambda)
	Rho              float64 `yaml:"rho" json:"rho"`                               // offered load; mean service time = Rho * InterArrivalTime
	SimTime          float64 `yaml:"sim_time" json:"sim_time"`                     // horizon of time-limited runs
	Runs             int     `yaml:"runs" json:"runs"`                             // replications per study point
	Alpha            float64 `yaml:"alpha" json:"alpha"`                           // significance level
	Epsilon          float64 `yaml:"epsilon" json:"epsilon"`                       // target precision of sequential estimation
	MaxDropped       int     `yaml:"max_dropped" json:"max_dropped"`               // drop budget of the minimum-buffer search
	Seed             int64   `yaml:"seed" json:"seed"`                             // master seed
	MaxLag           int     `yaml:"max_lag" json:"max_lag"`                       // largest lag of the waiting-time auto correlation

	ArrivalDist string `yaml:"arrival_distribution" json:"arrival_distribution"` // exponential (default), uniform, constant
	ServiceDist string `yaml:"service_distribution" json:"service_distribution"` // exponential (default), uniform, constant

	TraceLevel string `yaml:"trace_level" json:"trace_level"` // none (default) or events
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		BufferSize:       4,
		BufferSizes:      []int{5, 6, 7},
		MaxBufferSize:    7,
		InterArrivalTime: 490,
		Rho:              0.5,
		SimTime:          100000,
		Runs:             1000,
		Alpha:            0.10,
		Epsilon:          0.0015,
		MaxDropped:       10,
		Seed:             3755457,
		MaxLag:           20,
		ArrivalDist:      DistExponential,
		ServiceDist:      DistExponential,
		TraceLevel:       string(trace.LevelNone),
	}
}

// ArrivalRate returns lambda = 1 / InterArrivalTime.
func (c Config) ArrivalRate() float64 {
	return 1 / c.InterArrivalTime
}

// MeanServiceTime returns Rho * InterArrivalTime.
func (c Config) MeanServiceTime() float64 {
	return c.Rho * c.InterArrivalTime
}

// ServiceRate returns mu = 1 / MeanServiceTime.
func (c Config) ServiceRate() float64 {
	return 1 / c.MeanServiceTime()
}

// Validate checks every field and returns the first violation.
func (c Config) Validate() error {
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer_size must be non-negative, got %d", c.BufferSize)
	}
	for i, s := range c.BufferSizes {
		if s < 0 {
			return fmt.Errorf("buffer_sizes[%d] must be non-negative, got %d", i, s)
		}
	}
	if c.MaxBufferSize < 0 {
		return fmt.Errorf("max_buffer_size must be non-negative, got %d", c.MaxBufferSize)
	}
	if err := validateFinitePositive("inter_arrival_time", c.InterArrivalTime); err != nil {
		return err
	}
	if err := validateFinitePositive("rho", c.Rho); err != nil {
		return err
	}
	if err := validateFinitePositive("sim_time", c.SimTime); err != nil {
		return err
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	if math.IsNaN(c.Alpha) || c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %f", c.Alpha)
	}
	if err := validateFinitePositive("epsilon", c.Epsilon); err != nil {
		return err
	}
	if c.MaxDropped < 0 {
		return fmt.Errorf("max_dropped must be non-negative, got %d", c.MaxDropped)
	}
	if c.MaxLag < 0 {
		return fmt.Errorf("max_lag must be non-negative, got %d", c.MaxLag)
	}
	if !IsValidDistribution(c.ArrivalDist) {
		return fmt.Errorf("unknown arrival_distribution %q; valid: exponential, uniform, constant", c.ArrivalDist)
	}
	if !IsValidDistribution(c.ServiceDist) {
		return fmt.Errorf("unknown service_distribution %q; valid: exponential, uniform, constant", c.ServiceDist)
	}
	if !trace.IsValidLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace_level %q; valid: none, events", c.TraceLevel)
	}
	return nil
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
