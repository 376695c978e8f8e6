package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type loader struct {
	dir     string
	file    string
	envFile string
}

// LoaderOption adjusts where LoadConfig looks.
type LoaderOption func(*loader)

// WithConfigFile skips the search and reads path.
func WithConfigFile(path string) LoaderOption { return func(l *loader) { l.file = path } }

// WithEnvFile skips the search and loads path as the .env file.
func WithEnvFile(path string) LoaderOption { return func(l *loader) { l.envFile = path } }

// WithSearchDir searches relative to dir instead of the working directory.
func WithSearchDir(dir string) LoaderOption { return func(l *loader) { l.dir = dir } }

// configCandidates are tried in order; the first that exists wins.
func configCandidates(service string) []string {
	return []string{
		filepath.Join("cmd", service, "config.yml"),
		filepath.Join("config", "config.yml"),
		"config.yml",
	}
}

func envCandidates(service string) []string {
	var out []string
	for _, dir := range []string{filepath.Join("cmd", service), "config", "."} {
		out = append(out, filepath.Join(dir, ".env."+service), filepath.Join(dir, ".env"))
	}
	return out
}

func (l *loader) find(candidates []string) string {
	for _, c := range candidates {
		p := filepath.Join(l.dir, c)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadConfig fills cfg from, in rising precedence: the YAML config file,
// then the .env file and process environment. Every key cfg declares
// through mapstructure tags can be overridden by its upper-cased path with
// dots turned into underscores, so matching.similarity_threshold reads
// MATCHING_SIMILARITY_THRESHOLD. Variables already in the environment win
// over the .env file.
//
// A missing config file is not an error; defaults come from ApplyDefaults.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	l := loader{dir: "."}
	for _, opt := range opts {
		opt(&l)
	}
	if l.file == "" {
		l.file = l.find(configCandidates(service))
	}
	if l.envFile == "" {
		l.envFile = l.find(envCandidates(service))
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", l.envFile, err)
		}
	}

	v := viper.New()
	if l.file != "" {
		v.SetConfigFile(l.file)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", l.file, err)
		}
	}
	for _, key := range settingKeys(reflect.TypeOf(cfg), "") {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", service, err)
	}
	return nil
}

// EnvName is the environment variable that overrides key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// settingKeys lists the dotted keys of every leaf field of t, following
// mapstructure tags. Squashed structs contribute their fields at the
// parent level.
func settingKeys(t reflect.Type, prefix string) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "squash") || (f.Anonymous && name == "") {
			keys = append(keys, settingKeys(f.Type, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			keys = append(keys, settingKeys(ft, name)...)
			continue
		}
		keys = append(keys, name)
	}
	return keys
}
