// Package yaml provides a YAML codec for jsonmagic processors.
package yaml

import (
	"github.com/zoobzio/jsonmagic"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements jsonmagic.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() jsonmagic.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v. Mappings decode as map[string]any when
// every key is a string; the processor normalizes the rest.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
