package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

var (
	ErrProfilerAddress = errors.New("profiler server address is required")
	ErrProfilerAppName = errors.New("profiler application name is required")
)

// DefaultProfileTypes are collected when ProfilerConfig.Types is empty.
var DefaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// ProfilerConfig configures continuous profiling.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	Types             []pyroscope.ProfileType
	// Sampling rates applied when mutex or block profiles are requested.
	MutexProfileFraction int
	BlockProfileRate     int
}

func (c ProfilerConfig) types() []pyroscope.ProfileType {
	if len(c.Types) == 0 {
		return DefaultProfileTypes
	}
	return c.Types
}

func (c ProfilerConfig) validate() error {
	var errs []error
	if c.ServerAddress == "" {
		errs = append(errs, ErrProfilerAddress)
	}
	if c.ApplicationName == "" {
		errs = append(errs, ErrProfilerAppName)
	}
	return errors.Join(errs...)
}

// Profiler pushes profiles to Pyroscope until stopped.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	stopOnce sync.Once
	stopErr  error
}

// NewProfiler starts profiling when cfg.Enabled. A disabled profiler is a no-op.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		return p, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	types := cfg.types()
	applyRuntimeRates(types, cfg)

	tags := map[string]string{}
	for env, tag := range map[string]string{"HOSTNAME": "hostname", "POD_NAME": "pod"} {
		if v := os.Getenv(env); v != "" {
			tags[tag] = v
		}
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:              tags,
		ProfileTypes:      types,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	p.profiler = profiler
	logger.Info("Profiling enabled",
		zap.String("server", cfg.ServerAddress),
		zap.Int("profile_types", len(types)),
	)
	return p, nil
}

// applyRuntimeRates turns on the runtime sampling that mutex and block
// profiles depend on.
func applyRuntimeRates(types []pyroscope.ProfileType, cfg ProfilerConfig) {
	for _, t := range types {
		switch t {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(positiveOr(cfg.MutexProfileFraction, 5))
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(positiveOr(cfg.BlockProfileRate, 5))
		}
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (p *Profiler) IsEnabled() bool { return p.profiler != nil }

// Stop flushes the last profiles. Later calls return the first result.
func (p *Profiler) Stop() error {
	p.stopOnce.Do(func() {
		if p.profiler == nil {
			return
		}
		if err := p.profiler.Stop(); err != nil {
			p.stopErr = fmt.Errorf("stop pyroscope: %w", err)
		}
	})
	return p.stopErr
}

type pyroscopeLogger struct {
	*zap.SugaredLogger
}

var _ pyroscope.Logger = pyroscopeLogger{}
