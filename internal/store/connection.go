package store

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ConnectionConfig is the content of the YAML connection descriptor file
// handed to every process of the job.
type ConnectionConfig struct {
	Address   string   `yaml:"address"`
	Addresses []string `yaml:"addresses"`
	Database  string   `yaml:"database"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
}

// Endpoints returns all configured addresses, folding the single-address
// form into the list form.
func (c ConnectionConfig) Endpoints() []string {
	if len(c.Addresses) > 0 {
		return c.Addresses
	}
	if c.Address != "" {
		return []string{c.Address}
	}
	return nil
}

// LoadConnectionFile reads and decodes a connection descriptor file.
func LoadConnectionFile(path string) (*ConnectionConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open connection file: %w", err)
	}
	defer f.Close()
	return DecodeConnection(f)
}

// DecodeConnection decodes a connection descriptor from a reader.
func DecodeConnection(r io.Reader) (*ConnectionConfig, error) {
	var cfg ConnectionConfig
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode connection file: %w", err)
	}
	return &cfg, nil
}
