// Package config loads ls-globe settings from defaults, an optional YAML
// file and LSGLOBE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/litescript/ls-globe/internal/land"
	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
	"github.com/litescript/ls-globe/internal/scheduler"
)

// Config holds all application configuration.
type Config struct {
	View      ViewConfig      `mapstructure:"view"`
	Motion    MotionConfig    `mapstructure:"motion"`
	Graticule GraticuleConfig `mapstructure:"graticule"`
	Routes    RoutesConfig    `mapstructure:"routes"`
	Land      LandConfig      `mapstructure:"land"`
	API       APIConfig       `mapstructure:"api"`
	Log       LogConfig       `mapstructure:"log"`
	UI        UIConfig        `mapstructure:"ui"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ViewConfig places the globe in view space and sets the starting center.
type ViewConfig struct {
	Radius  float64 `mapstructure:"radius"`
	CenterX float64 `mapstructure:"center_x"`
	CenterY float64 `mapstructure:"center_y"`
	Lon0    float64 `mapstructure:"lon0"`
	Lat0    float64 `mapstructure:"lat0"`
}

// MotionConfig tunes autorotation, dragging and inertia.
type MotionConfig struct {
	AutoRotateSpeed float64       `mapstructure:"autorotate_speed"`
	FrameInterval   time.Duration `mapstructure:"frame_interval"`
	MaxSpeed        float64       `mapstructure:"max_speed"`
	DecayRate       float64       `mapstructure:"decay_rate"`
	ResumeDelay     time.Duration `mapstructure:"resume_delay"`
	DegreesPerPixel float64       `mapstructure:"degrees_per_pixel"`
	LatitudeFloor   float64       `mapstructure:"latitude_floor"`
	StopThreshold   float64       `mapstructure:"stop_threshold"`
}

// GraticuleConfig spaces the reference grid, in degrees.
type GraticuleConfig struct {
	LatStep       float64 `mapstructure:"lat_step"`
	LonStep       float64 `mapstructure:"lon_step"`
	SampleStep    float64 `mapstructure:"sample_step"`
	ParallelLimit float64 `mapstructure:"parallel_limit"`
}

// RoutesConfig controls route sampling and dash animation.
type RoutesConfig struct {
	Segments     int     `mapstructure:"segments"`
	PhaseStep    float64 `mapstructure:"phase_step"`
	PhaseSpacing float64 `mapstructure:"phase_spacing"`
}

// LandConfig selects the land outline source. Path wins over URL.
type LandConfig struct {
	URL          string        `mapstructure:"url"`
	Path         string        `mapstructure:"path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TargetPoints int           `mapstructure:"target_points"`
}

// APIConfig configures the control API. An empty Listen disables it.
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	FPS int `mapstructure:"fps"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"otlp_endpoint"`
}

// setDefaults registers every key with the stock globe tuning.
func setDefaults(v *viper.Viper) {
	view := projection.DefaultView()
	v.SetDefault("view.radius", view.Radius)
	v.SetDefault("view.center_x", view.CenterX)
	v.SetDefault("view.center_y", view.CenterY)
	v.SetDefault("view.lon0", 0.0)
	v.SetDefault("view.lat0", 0.0)

	motion := rotation.DefaultConfig()
	v.SetDefault("motion.autorotate_speed", motion.AutoRotateSpeed)
	v.SetDefault("motion.frame_interval", motion.FrameInterval)
	v.SetDefault("motion.max_speed", motion.MaxSpeed)
	v.SetDefault("motion.decay_rate", motion.DecayRate)
	v.SetDefault("motion.resume_delay", motion.ResumeDelay)
	v.SetDefault("motion.degrees_per_pixel", motion.DegreesPerPixel)
	v.SetDefault("motion.latitude_floor", motion.LatitudeFloor)
	v.SetDefault("motion.stop_threshold", motion.StopThreshold)

	grid := scene.DefaultGraticule()
	v.SetDefault("graticule.lat_step", grid.LatStep)
	v.SetDefault("graticule.lon_step", grid.LonStep)
	v.SetDefault("graticule.sample_step", grid.SampleStep)
	v.SetDefault("graticule.parallel_limit", grid.ParallelLimit)

	sched := scheduler.DefaultConfig()
	v.SetDefault("routes.segments", 90)
	v.SetDefault("routes.phase_step", sched.PhaseStep)
	v.SetDefault("routes.phase_spacing", sched.PhaseSpacing)

	v.SetDefault("land.url", land.DefaultURL)
	v.SetDefault("land.path", "")
	v.SetDefault("land.timeout", land.DefaultTimeout)
	v.SetDefault("land.target_points", land.DefaultTargetPoints)

	v.SetDefault("api.listen", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("ui.fps", 30)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "ls-globe")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
}

// Load reads configuration. With an empty path, globe.yaml is looked up in
// . and ./configs and may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("globe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// Environment variables: LSGLOBE_MOTION_MAX_SPEED → motion.max_speed
	v.SetEnvPrefix("LSGLOBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every value is usable, reporting all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.View.Radius <= 0 {
		errs = append(errs, fmt.Sprintf("view.radius must be positive, got %v", c.View.Radius))
	}
	if c.View.Lat0 < -90 || c.View.Lat0 > 90 {
		errs = append(errs, fmt.Sprintf("view.lat0 must be within [-90, 90], got %v", c.View.Lat0))
	}
	if c.Motion.FrameInterval <= 0 {
		errs = append(errs, "motion.frame_interval must be positive")
	}
	if c.Motion.MaxSpeed <= 0 {
		errs = append(errs, "motion.max_speed must be positive")
	}
	if c.Motion.DecayRate < 0 {
		errs = append(errs, "motion.decay_rate must not be negative")
	}
	if c.Motion.ResumeDelay < 0 {
		errs = append(errs, "motion.resume_delay must not be negative")
	}
	if c.Motion.DegreesPerPixel <= 0 {
		errs = append(errs, "motion.degrees_per_pixel must be positive")
	}
	if c.Motion.LatitudeFloor < 0 || c.Motion.LatitudeFloor > 1 {
		errs = append(errs, fmt.Sprintf("motion.latitude_floor must be within [0, 1], got %v", c.Motion.LatitudeFloor))
	}
	if c.Motion.StopThreshold < 0 {
		errs = append(errs, "motion.stop_threshold must not be negative")
	}
	if c.Graticule.LatStep <= 0 || c.Graticule.LonStep <= 0 || c.Graticule.SampleStep <= 0 {
		errs = append(errs, "graticule steps must be positive")
	}
	if c.Graticule.ParallelLimit < 0 || c.Graticule.ParallelLimit > 90 {
		errs = append(errs, fmt.Sprintf("graticule.parallel_limit must be within [0, 90], got %v", c.Graticule.ParallelLimit))
	}
	if c.Routes.Segments < 1 {
		errs = append(errs, fmt.Sprintf("routes.segments must be at least 1, got %d", c.Routes.Segments))
	}
	if c.Land.Timeout <= 0 {
		errs = append(errs, "land.timeout must be positive")
	}
	if c.Land.TargetPoints < 0 {
		errs = append(errs, "land.target_points must not be negative")
	}
	if c.UI.FPS < 1 || c.UI.FPS > 240 {
		errs = append(errs, fmt.Sprintf("ui.fps must be 1-240, got %d", c.UI.FPS))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ProjectionView returns the globe's screen geometry.
func (c *Config) ProjectionView() projection.View {
	return projection.View{Radius: c.View.Radius, CenterX: c.View.CenterX, CenterY: c.View.CenterY}
}

// InitialRotation returns the rotation the globe starts (and resets) at.
func (c *Config) InitialRotation() projection.Rotation {
	return projection.Rotation{Lon0: c.View.Lon0, Lat0: c.View.Lat0}
}

// Rotation returns the rotation controller tuning.
func (c *Config) Rotation() rotation.Config {
	return rotation.Config{
		AutoRotateSpeed: c.Motion.AutoRotateSpeed,
		FrameInterval:   c.Motion.FrameInterval,
		MaxSpeed:        c.Motion.MaxSpeed,
		DecayRate:       c.Motion.DecayRate,
		ResumeDelay:     c.Motion.ResumeDelay,
		DegreesPerPixel: c.Motion.DegreesPerPixel,
		LatitudeFloor:   c.Motion.LatitudeFloor,
		StopThreshold:   c.Motion.StopThreshold,
	}
}

// Scene returns a frame builder for the configured view and grid.
func (c *Config) Scene() *scene.Builder {
	b := scene.NewBuilder(c.ProjectionView())
	b.Graticule = scene.GraticuleConfig{
		LatStep:       c.Graticule.LatStep,
		LonStep:       c.Graticule.LonStep,
		SampleStep:    c.Graticule.SampleStep,
		ParallelLimit: c.Graticule.ParallelLimit,
	}
	b.ArcSegments = c.Routes.Segments
	return b
}

// Scheduler returns the loop's animation constants.
func (c *Config) Scheduler() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.PhaseStep = c.Routes.PhaseStep
	cfg.PhaseSpacing = c.Routes.PhaseSpacing
	return cfg
}

// FrameInterval returns the UI tick interval.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.UI.FPS)
}

// LandSource returns the configured land source: a file when land.path is
// set, otherwise HTTP when land.url is set, otherwise nil (fallback only).
func (c *Config) LandSource() land.Source {
	switch {
	case c.Land.Path != "":
		return land.FileSource{Path: c.Land.Path, TargetPoints: c.Land.TargetPoints}
	case c.Land.URL != "":
		return land.NewFetcher(
			land.WithURL(c.Land.URL),
			land.WithTimeout(c.Land.Timeout),
			land.WithTargetPoints(c.Land.TargetPoints),
		)
	}
	return nil
}
