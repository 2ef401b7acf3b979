package config

import (
	toml "github.com/pelletier/go-toml/v2"
)

// TOML implements koanf.Parser with go-toml.
type TOML struct{}

// Parser returns the TOML parser used for config files.
func Parser() *TOML {
	return &TOML{}
}

// Unmarshal decodes TOML bytes into a nested map.
func (p *TOML) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal encodes a nested map as TOML.
func (p *TOML) Marshal(o map[string]interface{}) ([]byte, error) {
	return toml.Marshal(o)
}
