package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Load reads the configuration from the process environment, fills in
// defaults and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a caller supplied variable lookup. A variable that
// is set to the empty string counts as unset.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if err := decodeEnv(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func decodeEnv(v reflect.Value, lookup func(string) (string, bool)) error {
	for _, f := range reflect.VisibleFields(v.Type()) {
		fv := v.FieldByIndex(f.Index)
		if !f.IsExported() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			if err := decodeEnv(fv, lookup); err != nil {
				return err
			}
			continue
		}

		name := f.Tag.Get("env")
		if name == "" {
			continue
		}

		raw := envValue(lookup, name, f.Tag.Get("envAlt"))
		if raw == "" {
			if f.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			raw = f.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		parsed, err := parseValue(f.Type, raw)
		if err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, raw, err)
		}
		fv.Set(parsed)
	}
	return nil
}

func envValue(lookup func(string) (string, bool), names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if s, ok := lookup(n); ok && s != "" {
			return s
		}
	}
	return ""
}

func parseValue(t reflect.Type, raw string) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid duration: %w", err)
		}
		return reflect.ValueOf(d), nil
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t), nil
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid integer: %w", err)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid boolean: %w", err)
		}
		return reflect.ValueOf(b), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return reflect.ValueOf(splitList(raw)), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("unsupported field type %s", t)
}

// splitList splits a comma separated value and drops blank entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// configValidate reports field errors under their environment variable name.
var configValidate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// Validate checks that the configuration is usable. Every violation is
// reported, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	// Limits only matter when the limiter is installed.
	if c.Rate.Enabled {
		if c.Rate.RequestsPerMinute <= 0 {
			problems = append(problems, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		}
		if c.Rate.SubmitPerMinute <= 0 {
			problems = append(problems, "RATE_LIMIT_SUBMIT must be positive when rate limiting is enabled")
		}
		if c.Rate.LoginPerMinute <= 0 {
			problems = append(problems, "RATE_LIMIT_LOGIN must be positive when rate limiting is enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s (%v) must be at least %s", name, fe.Value(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s (%v) must be at most %s", name, fe.Value(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s (%v) must be positive", name, fe.Value())
	case "gtefield":
		return fmt.Sprintf("%s (%v) must not be below %s", name, fe.Value(), envName(fe))
	case "oneof":
		return fmt.Sprintf("%s (%q) must be one of: %s", name, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "number":
		return fmt.Sprintf("%s (%q) must contain only digits", name, fe.Value())
	case "cidr|ip":
		return fmt.Sprintf("%s (%q) is not an IP address or CIDR", name, fe.Value())
	}
	return fmt.Sprintf("%s (%v) failed %s", name, fe.Value(), fe.Tag())
}

// envName resolves the env tag of the field named by a cross-field rule.
func envName(fe validator.FieldError) string {
	if f, ok := reflect.TypeOf(DatabaseConfig{}).FieldByName(fe.Param()); ok {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
	}
	return fe.Param()
}

// String returns a representation of the config that is safe to log.
// The database URL is masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Host: %q, Port: %d}, "+
		"Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, "+
		"Grid: {Size: %d, CallTimeout: %s, MaxConcurrentRuns: %d}, "+
		"Leaders: {CacheTTL: %s}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d, SubmitPerMinute: %d, LoginPerMinute: %d}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Host, c.Server.Port,
		c.Database.MaxConns, c.Database.MinConns,
		c.Grid.Size, c.Grid.CallTimeout, c.Grid.MaxConcurrentRuns,
		c.Leaders.CacheTTL,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.SubmitPerMinute, c.Rate.LoginPerMinute,
		c.Logging.Level, c.Logging.Format)
}
