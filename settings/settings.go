// Package settings assembles the tool's configuration from, in
// increasing precedence order: built-in defaults, ~/.digestiflowrc.toml,
// DIGESTIFLOW__-prefixed environment variables, and CLI flags. The
// nesting (Web, Ingest) and the field names mirror
// original_source/src/settings.rs and the settings.ingest.* accesses in
// original_source/src/ingest/mod.rs.
package settings

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/komkom/toml"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Web holds the REST endpoint and credential.
type Web struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// Ingest holds every flag and config value specific to the `ingest`
// subcommand.
type Ingest struct {
	Operator             string  `json:"operator"`
	ProjectUUID          string  `json:"project_uuid"`
	Register             bool    `json:"register"`
	Update               bool    `json:"update"`
	SkipIfStatusFinal    bool    `json:"skip_if_status_final"`
	AnalyzeAdapters      bool    `json:"analyze_adapters"`
	ForceAnalyzeAdapters bool    `json:"force_analyze_adapters"`
	PostAdapters         bool    `json:"post_adapters"`
	SampleReadsPerTile   int     `json:"sample_reads_per_tile"`
	MinIndexFraction     float64 `json:"min_index_fraction"`
}

// Settings is the fully merged configuration for one run of the tool.
type Settings struct {
	Debug    bool   `json:"debug"`
	LogToken bool   `json:"log_token"`
	Threads  int    `json:"threads"`
	Seed     int64  `json:"seed"`
	Web      Web    `json:"web"`
	Ingest   Ingest `json:"ingest"`
}

// Default returns the built-in baseline configuration.
func Default() Settings {
	return Settings{
		Threads: 4,
		Seed:    42,
		Ingest: Ingest{
			Register:           true,
			Update:             true,
			SampleReadsPerTile: 10000,
			MinIndexFraction:   0.01,
		},
	}
}

// New assembles Settings from defaults, ~/.digestiflowrc.toml (if
// present), the environment, and flags, applied in that order.
func New(flags *pflag.FlagSet) (Settings, error) {
	s := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		rcPath := filepath.Join(home, ".digestiflowrc.toml")
		if err := s.mergeTOMLFile(rcPath); err != nil {
			return Settings{}, err
		}
	}

	if err := s.mergeEnvironment(os.Environ()); err != nil {
		return Settings{}, err
	}

	if flags != nil {
		if err := s.Merge(flags); err != nil {
			return Settings{}, err
		}
	}

	return s, nil
}

// mergeTOMLFile decodes path (if it exists) through komkom/toml's
// TOML-to-JSON token stream and json.Unmarshal's it on top of s, the
// same two-step conversion eutils/toml.go performs for its TOML inputs
// (there via TOMLConverter/JSONConverter; here directly through
// encoding/json since Settings already has the shape we need).
func (s *Settings) mergeTOMLFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "settings: reading %s", path)
	}

	r := toml.New(bytes.NewReader(raw))
	jsonBytes, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "settings: converting TOML %s to JSON", path)
	}
	if err := json.Unmarshal(jsonBytes, s); err != nil {
		return errors.Wrapf(err, "settings: decoding %s", path)
	}
	return nil
}

// envField is one DIGESTIFLOW__-prefixed override, already split on "__"
// into its path segments (lowercased config keys).
type envField struct {
	path []string
	val  string
}

// mergeEnvironment applies DIGESTIFLOW__-prefixed variables, mapping
// A__B__C to the nested field Settings.A.B.C, mirroring the `config`
// crate's Environment::with_prefix("DIGESTIFLOW").separator("__") used
// by original_source/src/settings.rs.
func (s *Settings) mergeEnvironment(environ []string) error {
	const prefix = "DIGESTIFLOW__"
	for _, kv := range environ {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv[len(prefix):], "=", 2)
		if len(parts) != 2 {
			continue
		}
		path := strings.Split(strings.ToLower(parts[0]), "__")
		if err := applyEnvField(s, envField{path: path, val: parts[1]}); err != nil {
			return errors.Wrapf(err, "settings: applying env var %s", kv)
		}
	}
	return nil
}

func applyEnvField(s *Settings, f envField) error {
	set := func(target *string) { *target = f.val }
	setBool := func(target *bool) error {
		b, err := strconv.ParseBool(f.val)
		if err != nil {
			return err
		}
		*target = b
		return nil
	}
	setInt := func(target *int) error {
		n, err := strconv.Atoi(f.val)
		if err != nil {
			return err
		}
		*target = n
		return nil
	}
	setFloat := func(target *float64) error {
		n, err := strconv.ParseFloat(f.val, 64)
		if err != nil {
			return err
		}
		*target = n
		return nil
	}
	setInt64 := func(target *int64) error {
		n, err := strconv.ParseInt(f.val, 10, 64)
		if err != nil {
			return err
		}
		*target = n
		return nil
	}

	if len(f.path) == 1 {
		switch f.path[0] {
		case "debug":
			return setBool(&s.Debug)
		case "log_token":
			return setBool(&s.LogToken)
		case "threads":
			return setInt(&s.Threads)
		case "seed":
			return setInt64(&s.Seed)
		}
	}
	if len(f.path) == 2 && f.path[0] == "web" {
		switch f.path[1] {
		case "url":
			set(&s.Web.URL)
			return nil
		case "token":
			set(&s.Web.Token)
			return nil
		}
	}
	if len(f.path) == 2 && f.path[0] == "ingest" {
		switch f.path[1] {
		case "operator":
			set(&s.Ingest.Operator)
			return nil
		case "project_uuid":
			set(&s.Ingest.ProjectUUID)
			return nil
		case "register":
			return setBool(&s.Ingest.Register)
		case "update":
			return setBool(&s.Ingest.Update)
		case "skip_if_status_final":
			return setBool(&s.Ingest.SkipIfStatusFinal)
		case "analyze_adapters":
			return setBool(&s.Ingest.AnalyzeAdapters)
		case "force_analyze_adapters":
			return setBool(&s.Ingest.ForceAnalyzeAdapters)
		case "post_adapters":
			return setBool(&s.Ingest.PostAdapters)
		case "sample_reads_per_tile":
			return setInt(&s.Ingest.SampleReadsPerTile)
		case "min_index_fraction":
			return setFloat(&s.Ingest.MinIndexFraction)
		}
	}
	return nil // unrecognized keys are ignored, not fatal
}

// Merge applies cobra/pflag-bound CLI flags last, and only those the
// user actually set (Changed == true), per SPEC_FULL.md §2.2.
func (s *Settings) Merge(flags *pflag.FlagSet) error {
	var err error
	visit := func(name string, apply func(*pflag.Flag)) {
		if err != nil {
			return
		}
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			return
		}
		apply(f)
	}

	visit("threads", func(f *pflag.Flag) { s.Threads, err = strconv.Atoi(f.Value.String()) })
	visit("web-url", func(f *pflag.Flag) { s.Web.URL = f.Value.String() })
	visit("log-token", func(f *pflag.Flag) { s.LogToken, err = strconv.ParseBool(f.Value.String()) })
	visit("project-uuid", func(f *pflag.Flag) { s.Ingest.ProjectUUID = f.Value.String() })
	visit("no-register", func(f *pflag.Flag) {
		var v bool
		if v, err = strconv.ParseBool(f.Value.String()); err == nil && v {
			s.Ingest.Register = false
		}
	})
	visit("no-update", func(f *pflag.Flag) {
		var v bool
		if v, err = strconv.ParseBool(f.Value.String()); err == nil && v {
			s.Ingest.Update = false
		}
	})
	visit("analyze-adapters", func(f *pflag.Flag) { s.Ingest.AnalyzeAdapters, err = strconv.ParseBool(f.Value.String()) })
	visit("post-adapters", func(f *pflag.Flag) { s.Ingest.PostAdapters, err = strconv.ParseBool(f.Value.String()) })
	visit("sample-reads-per-tile", func(f *pflag.Flag) {
		s.Ingest.SampleReadsPerTile, err = strconv.Atoi(f.Value.String())
	})
	visit("analyze-if-state-final", func(f *pflag.Flag) {
		var v bool
		if v, err = strconv.ParseBool(f.Value.String()); err == nil && v {
			s.Ingest.SkipIfStatusFinal = false
		}
	})

	if err != nil {
		return errors.Wrap(err, "settings: applying CLI flags")
	}
	return nil
}

// Validate enforces spec.md §7's ConfigError rule: a missing project
// UUID is fatal for the entire run.
func (s Settings) Validate() error {
	if s.Ingest.ProjectUUID == "" {
		return errors.New("settings: --project-uuid is required")
	}
	return nil
}
