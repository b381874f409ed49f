// Package config builds jsonmagic processor options from configuration files
// and the environment.
//
// Keys live under the "jsonmagic" prefix:
//
//	jsonmagic:
//	  format: yaml              # json, yaml, msgpack or cbor
//	  type_key: __type__
//	  max_depth: 1000
//	  max_size: 1048576         # bytes, 0 disables the limit
//	  ignore_unknown_fields: false
//
// Environment variables override file values, e.g. JSONMAGIC_FORMAT=msgpack.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/zoobzio/jsonmagic"
	"github.com/zoobzio/jsonmagic/cbor"
	"github.com/zoobzio/jsonmagic/msgpack"
	"github.com/zoobzio/jsonmagic/yaml"
)

// Prefix is the key prefix. Environment variables use it upper-cased.
const Prefix = "jsonmagic"

// Supported formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
	FormatCBOR    = "cbor"
)

// ErrUnknownFormat indicates a format with no codec.
var ErrUnknownFormat = errors.New("unknown format")

// Config holds processor settings.
type Config struct {
	Format              string
	TypeKey             string
	MaxDepth            int
	MaxSize             int
	IgnoreUnknownFields bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(key("format"), FormatJSON)
	v.SetDefault(key("type_key"), jsonmagic.DefaultTypeKey)
	v.SetDefault(key("max_depth"), jsonmagic.DefaultMaxDepth)
	v.SetDefault(key("max_size"), 0)
	v.SetDefault(key("ignore_unknown_fields"), false)
}

// Load reads the jsonmagic keys from v. Unset keys take their defaults.
// Load enables automatic environment lookup on v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Format:              strings.ToLower(v.GetString(key("format"))),
		TypeKey:             v.GetString(key("type_key")),
		MaxDepth:            v.GetInt(key("max_depth")),
		MaxSize:             v.GetInt(key("max_size")),
		IgnoreUnknownFields: v.GetBool(key("ignore_unknown_fields")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file from fs. The file type follows the
// path's extension.
func LoadFile(fs afero.Fs, path string) (Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Load(v)
}

// Validate checks the format name. Numeric limits are checked by jsonmagic.New.
func (c Config) Validate() error {
	if _, err := codecFor(c.Format); err != nil {
		return err
	}
	return nil
}

// Options converts c into processor options.
func (c Config) Options() ([]jsonmagic.Option, error) {
	codec, err := codecFor(c.Format)
	if err != nil {
		return nil, err
	}
	opts := []jsonmagic.Option{
		jsonmagic.WithCodec(codec),
		jsonmagic.WithTypeKey(c.TypeKey),
		jsonmagic.WithMaxDepth(c.MaxDepth),
		jsonmagic.WithMaxSize(c.MaxSize),
	}
	if c.IgnoreUnknownFields {
		opts = append(opts, jsonmagic.WithIgnoreUnknownFields())
	}
	return opts, nil
}

func codecFor(format string) (jsonmagic.Codec, error) {
	switch format {
	case FormatJSON, "":
		return jsonmagic.JSON(), nil
	case FormatYAML, "yml":
		return yaml.New(), nil
	case FormatMsgpack:
		return msgpack.New(), nil
	case FormatCBOR:
		return cbor.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func key(name string) string {
	return Prefix + "." + name
}
