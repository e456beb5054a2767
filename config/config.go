// Package config loads toolmanim configuration.
//
// Sources, lowest to highest precedence: built-in defaults, an optional YAML
// file (with ${VAR} interpolation), then TOOLMANIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolmanim/render"
	"github.com/jonwraymond/toolmanim/workspace"
)

// ErrInvalidConfig indicates an invalid configuration value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Transports served by the server command.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults for fields not covered by the render and workspace packages.
const (
	DefaultMediaDir   = "media"
	DefaultServerName = "ManimServer"
	DefaultHTTPAddr   = "127.0.0.1:8765"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
)

// Config is the complete configuration.
type Config struct {
	MediaDir  string          `yaml:"media_dir"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Render    RenderConfig    `yaml:"render"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// WorkspaceConfig configures the working directory layout.
type WorkspaceConfig struct {
	WorkDir        string `yaml:"work_dir"`
	ScriptName     string `yaml:"script_name"`
	Isolate        bool   `yaml:"isolate"`
	ConfineCleanup bool   `yaml:"confine_cleanup"`
}

// RenderConfig configures the external renderer invocation.
type RenderConfig struct {
	Executable     string `yaml:"executable"`
	GPUProbe       string `yaml:"gpu_probe"`
	Renderer       string `yaml:"renderer"`
	DefaultQuality string `yaml:"default_quality"`
	Preview        *bool  `yaml:"preview"`

	// Timeout of zero waits for the renderer indefinitely.
	Timeout   time.Duration `yaml:"timeout"`
	KillGrace time.Duration `yaml:"kill_grace"`
}

// PreviewEnabled reports whether the -p flag is passed. Default: true.
func (r RenderConfig) PreviewEnabled() bool {
	return r.Preview == nil || *r.Preview
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"`
	HTTPAddr  string `yaml:"http_addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads configuration from path, applies defaults and environment
// overrides, and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.MediaDir, DefaultMediaDir)
	setDefault(&cfg.Workspace.WorkDir, workspace.DefaultWorkDir)
	setDefault(&cfg.Workspace.ScriptName, workspace.DefaultScriptName)
	setDefault(&cfg.Render.Executable, render.DefaultExecutable)
	setDefault(&cfg.Render.GPUProbe, render.DefaultGPUProbe)
	setDefault(&cfg.Render.Renderer, string(render.RendererAuto))
	setDefault(&cfg.Render.DefaultQuality, string(render.DefaultQuality))
	if cfg.Render.KillGrace == 0 {
		cfg.Render.KillGrace = render.DefaultKillGrace
	}
	setDefault(&cfg.Server.Name, DefaultServerName)
	setDefault(&cfg.Server.Transport, TransportStdio)
	setDefault(&cfg.Server.HTTPAddr, DefaultHTTPAddr)
	setDefault(&cfg.Log.Level, DefaultLogLevel)
	setDefault(&cfg.Log.Format, DefaultLogFormat)
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var problems []string

	if _, err := render.ParseRenderer(c.Render.Renderer); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Render.Timeout < 0 {
		problems = append(problems, "render.timeout must not be negative")
	}
	if c.Render.KillGrace < 0 {
		problems = append(problems, "render.kill_grace must not be negative")
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		problems = append(problems, fmt.Sprintf("unknown server.transport %q (want stdio or http)", c.Server.Transport))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log.format %q (want console or json)", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnv replaces ${VAR} with the variable's value. Unset variables
// are left as written.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// applyEnv overrides cfg from TOOLMANIM_* variables. MANIM_PATH is honored
// for the executable when TOOLMANIM_EXECUTABLE is unset.
func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv("MANIM_PATH"); ok {
		cfg.Render.Executable = v
	}

	strs := map[string]*string{
		"TOOLMANIM_MEDIA_DIR":       &cfg.MediaDir,
		"TOOLMANIM_WORK_DIR":        &cfg.Workspace.WorkDir,
		"TOOLMANIM_SCRIPT_NAME":     &cfg.Workspace.ScriptName,
		"TOOLMANIM_EXECUTABLE":      &cfg.Render.Executable,
		"TOOLMANIM_GPU_PROBE":       &cfg.Render.GPUProbe,
		"TOOLMANIM_RENDERER":        &cfg.Render.Renderer,
		"TOOLMANIM_DEFAULT_QUALITY": &cfg.Render.DefaultQuality,
		"TOOLMANIM_SERVER_NAME":     &cfg.Server.Name,
		"TOOLMANIM_TRANSPORT":       &cfg.Server.Transport,
		"TOOLMANIM_HTTP_ADDR":       &cfg.Server.HTTPAddr,
		"TOOLMANIM_LOG_LEVEL":       &cfg.Log.Level,
		"TOOLMANIM_LOG_FORMAT":      &cfg.Log.Format,
	}
	for key, field := range strs {
		if v, ok := lookupEnv(key); ok {
			*field = v
		}
	}

	bools := map[string]*bool{
		"TOOLMANIM_ISOLATE":         &cfg.Workspace.Isolate,
		"TOOLMANIM_CONFINE_CLEANUP": &cfg.Workspace.ConfineCleanup,
	}
	for key, field := range bools {
		if v, ok := lookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
			}
			*field = b
		}
	}
	if v, ok := lookupEnv("TOOLMANIM_PREVIEW"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TOOLMANIM_PREVIEW: %v", ErrInvalidConfig, err)
		}
		cfg.Render.Preview = &b
	}

	durations := map[string]*time.Duration{
		"TOOLMANIM_TIMEOUT":    &cfg.Render.Timeout,
		"TOOLMANIM_KILL_GRACE": &cfg.Render.KillGrace,
	}
	for key, field := range durations {
		if v, ok := lookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
			}
			*field = d
		}
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
