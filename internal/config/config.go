package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/archive"
	"github.com/vango-dev/vtree/pkg/server"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vtree.json"

	// YAMLConfigFileName is read when ConfigFileName is absent.
	YAMLConfigFileName = "vtree.yaml"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "vtree"
)

// Duration is a time.Duration that reads and writes Go duration strings.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler. Bare numbers are nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("duration must be a string like \"10s\": %s", data)
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Integers are nanoseconds.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string like \"10s\"", n.Line)
	}
	if n.Tag == "!!int" {
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*d = Duration(v)
		return nil
	}
	parsed, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// JSONSchema describes Duration as a Go duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^(0|([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+)$`,
		Description: "Go duration such as 250ms or 1m30s",
	}
}

// Config is the contents of vtree.json.
type Config struct {
	Server  ServerConfig   `json:"server" yaml:"server"`
	Metrics MetricsConfig  `json:"metrics" yaml:"metrics"`
	Archive archive.Config `json:"archive" yaml:"archive"`
	Log     LogConfig      `json:"log" yaml:"log"`

	configPath string
}

// ServerConfig configures the HTTP listener and the host.
type ServerConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	FrameBudget       Duration `json:"frameBudget" yaml:"frameBudget"`
	PatchHistory      int      `json:"patchHistory" yaml:"patchHistory"`
	EventQueue        int      `json:"eventQueue" yaml:"eventQueue"`
	ReadTimeout       Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout      Duration `json:"writeTimeout" yaml:"writeTimeout"`
	HandshakeTimeout  Duration `json:"handshakeTimeout" yaml:"handshakeTimeout"`
	HeartbeatInterval Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	MaxMessageSize    int64    `json:"maxMessageSize" yaml:"maxMessageSize"`
	ShutdownTimeout   Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	// AllowedOrigins lists the Origin values accepted on upgrade. Empty
	// means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig configures the /metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`  // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// New creates a Config with default values.
func New() *Config {
	host := server.DefaultHostConfig()
	return &Config{
		Server: ServerConfig{
			Addr:              DefaultAddr,
			FrameBudget:       Duration(host.FrameBudget),
			PatchHistory:      host.PatchHistory,
			EventQueue:        host.EventQueue,
			ReadTimeout:       Duration(host.ReadTimeout),
			WriteTimeout:      Duration(host.WriteTimeout),
			HandshakeTimeout:  Duration(host.HandshakeTimeout),
			HeartbeatInterval: Duration(host.HeartbeatInterval),
			MaxMessageSize:    host.MaxMessageSize,
			ShutdownTimeout:   Duration(15 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Archive: archive.Config{Kind: archive.KindNone},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads vtree.json from dir, falling back to vtree.yaml.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if alt := filepath.Join(dir, YAMLConfigFileName); fileExists(alt) {
			path = alt
		}
	}
	return LoadFile(path)
}

// LoadFile reads configuration from path. Fields missing from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E124").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	parse := Parse
	if isYAML(path) {
		parse = ParseYAML
	}
	cfg, err := parse(data)
	if err != nil {
		var ce *errors.Error
		if stderrors.As(err, &ce) && ce.Location != nil {
			line, col := ce.Location.Line, ce.Location.Column
			ce.WithLocation(path, line, col)
		}
		return nil, err
	}

	cfg.configPath = path
	if cfg.Archive.Kind == archive.KindDir && cfg.Archive.Dir != "" && !filepath.IsAbs(cfg.Archive.Dir) {
		cfg.Archive.Dir = filepath.Join(filepath.Dir(path), cfg.Archive.Dir)
	}
	return cfg, nil
}

// Parse decodes a configuration document over the defaults. Unknown fields
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, parseError(data, err)
	}
	return cfg, nil
}

// ParseYAML is Parse for YAML documents. An empty document yields the
// defaults.
func ParseYAML(data []byte) (*Config, error) {
	cfg := New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, yamlError(err)
	}
	return cfg, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlError(err error) error {
	e := errors.New("E120").Wrap(err)
	msg := err.Error()
	if strings.Contains(msg, "not found in type") {
		e.WithSuggestion("Remove the field or check its spelling")
	}
	if m := yamlLine.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		e.Location = &errors.Location{Line: line, Column: 1}
	}
	return e
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// parseError converts a decoding error into an E120 carrying the line and
// column of the offending byte when the decoder reports one.
func parseError(data []byte, err error) error {
	e := errors.New("E120").Wrap(err)

	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
		e.WithSuggestion("Check for trailing commas and unquoted keys")
	case stderrors.As(err, &typeErr):
		offset = typeErr.Offset
		e.WithSuggestion(fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type))
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		e.WithSuggestion("Remove the field or check its spelling")
	}
	if offset >= 0 {
		line, col := position(data, offset)
		e.Location = &errors.Location{Line: line, Column: col}
	}
	return e
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - (bytes.LastIndexByte(before, '\n') + 1)
	if col < 1 {
		col = 1
	}
	return line, col
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML when the extension
// is .yaml or .yml.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return errors.New("E122").
			WithSuggestion(fmt.Sprintf("Use a form like \":8080\" or \"127.0.0.1:8080\", not %q", c.Server.Addr)).
			Wrap(err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535")
	}

	durations := []struct {
		name string
		d    Duration
	}{
		{"server.frameBudget", c.Server.FrameBudget},
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.handshakeTimeout", c.Server.HandshakeTimeout},
		{"server.heartbeatInterval", c.Server.HeartbeatInterval},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
	}
	for _, f := range durations {
		if f.d < 0 {
			return errors.New("E123").WithDetail(f.name + " must not be negative")
		}
	}
	if c.Server.PatchHistory < 0 || c.Server.EventQueue < 0 || c.Server.MaxMessageSize < 0 {
		return errors.New("E123").
			WithDetail("server.patchHistory, server.eventQueue and server.maxMessageSize must not be negative")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("E123").WithDetail(err.Error())
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E123").WithDetail("log.format must be text or json")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("E121").WithDetail("metrics.namespace is required when metrics are enabled")
	}

	switch c.Archive.Kind {
	case "", archive.KindNone, archive.KindMemory:
	case archive.KindDir:
		if c.Archive.Dir == "" {
			return errors.New("E121").WithDetail("archive.dir is required for the dir archive")
		}
	case archive.KindS3:
		if c.Archive.Bucket == "" {
			return errors.New("E121").WithDetail("archive.bucket is required for the s3 archive")
		}
	default:
		kinds := archive.Kinds()
		if !slices.Contains(kinds, c.Archive.Kind) {
			return errors.New("E123").
				WithDetail(fmt.Sprintf("archive.kind %q is not one of %s", c.Archive.Kind, strings.Join(kinds, ", ")))
		}
		if c.Archive.DSN == "" {
			return errors.New("E121").WithDetail("archive.dsn is required for the " + c.Archive.Kind + " archive")
		}
	}
	return nil
}

// EnvPrefix prefixes the environment variables read by ApplyEnv.
const EnvPrefix = "VTREE_"

// ApplyEnv overrides settings from VTREE_* variables found by lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":           &c.Server.Addr,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
		"METRICS_NS":     &c.Metrics.Namespace,
		"ARCHIVE_KIND":   &c.Archive.Kind,
		"ARCHIVE_DIR":    &c.Archive.Dir,
		"ARCHIVE_BUCKET": &c.Archive.Bucket,
		"ARCHIVE_PREFIX": &c.Archive.Prefix,
		"ARCHIVE_REGION": &c.Archive.Region,
		"ARCHIVE_DSN":    &c.Archive.DSN,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "METRICS"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("E123").WithDetail(EnvPrefix + "METRICS must be true or false").Wrap(err)
		}
		c.Metrics.Enabled = enabled
	}
	if v, ok := lookup(EnvPrefix + "FRAME_BUDGET"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("E123").WithDetail(EnvPrefix + "FRAME_BUDGET must be a duration").Wrap(err)
		}
		c.Server.FrameBudget = Duration(d)
	}
	return nil
}

// HostConfig converts the server section for server.NewHost.
func (c *Config) HostConfig() *server.HostConfig {
	hc := &server.HostConfig{
		FrameBudget:       time.Duration(c.Server.FrameBudget),
		PatchHistory:      c.Server.PatchHistory,
		EventQueue:        c.Server.EventQueue,
		ReadTimeout:       time.Duration(c.Server.ReadTimeout),
		WriteTimeout:      time.Duration(c.Server.WriteTimeout),
		HandshakeTimeout:  time.Duration(c.Server.HandshakeTimeout),
		HeartbeatInterval: time.Duration(c.Server.HeartbeatInterval),
		MaxMessageSize:    c.Server.MaxMessageSize,
	}
	if len(c.Server.AllowedOrigins) > 0 {
		allowed := make(map[string]bool, len(c.Server.AllowedOrigins))
		for _, o := range c.Server.AllowedOrigins {
			allowed[o] = true
		}
		hc.CheckOrigin = func(origin string) bool { return allowed[origin] }
	}
	return hc
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}

// Exists reports whether dir holds a vtree.json or vtree.yaml.
func Exists(dir string) bool {
	return fileExists(filepath.Join(dir, ConfigFileName)) ||
		fileExists(filepath.Join(dir, YAMLConfigFileName))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Schema returns the JSON Schema of the configuration file.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	s := r.Reflect(&Config{})
	s.ID = "https://vango.dev/schemas/vtree.json"
	s.Title = "vtree configuration"
	return json.MarshalIndent(s, "", "  ")
}
