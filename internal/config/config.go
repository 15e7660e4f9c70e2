// Package config holds the immutable benchmark configuration and the
// validation of raw flag values into it.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/perfworks/evbench/pkg/logging"
)

// Config is built once at startup and passed by pointer to every component.
// It is never mutated after Load returns.
type Config struct {
	Protocol       string
	ConnectionFile string
	EngineConfig   string // optional engine configuration file
	DataSet        string
	Label          string
	ProductSizes   []uint64
	LogLevel       string
	Threads        uint
	WaitMin        float64 // seconds
	WaitMax        float64 // seconds
	DisableStats   bool
}

// Raw carries flag values exactly as given on the command line.
type Raw struct {
	Protocol       string
	ConnectionFile string
	EngineConfig   string
	DataSet        string
	Label          string
	ProductSizes   string
	LogLevel       string
	Threads        uint
	WaitRange      string
	DisableStats   bool
}

// Load validates raw flag values and produces the configuration. Any error
// returned here is fatal for the whole process group.
func Load(raw Raw) (*Config, error) {
	if raw.Protocol == "" {
		return nil, fmt.Errorf("protocol must not be empty")
	}
	if raw.DataSet == "" {
		return nil, fmt.Errorf("dataset name must not be empty")
	}
	if raw.Label == "" {
		return nil, fmt.Errorf("product label must not be empty")
	}
	if _, err := logging.ParseLevel(raw.LogLevel); err != nil {
		return nil, err
	}
	if err := CheckFileExists(raw.ConnectionFile); err != nil {
		return nil, err
	}
	if raw.EngineConfig != "" {
		if err := CheckFileExists(raw.EngineConfig); err != nil {
			return nil, err
		}
	}
	waitMin, waitMax, err := ParseWaitRange(raw.WaitRange)
	if err != nil {
		return nil, err
	}

	return &Config{
		Protocol:       raw.Protocol,
		ConnectionFile: raw.ConnectionFile,
		EngineConfig:   raw.EngineConfig,
		DataSet:        raw.DataSet,
		Label:          raw.Label,
		ProductSizes:   ParseProductSizes(raw.ProductSizes),
		LogLevel:       raw.LogLevel,
		Threads:        raw.Threads,
		WaitMin:        waitMin,
		WaitMax:        waitMax,
		DisableStats:   raw.DisableStats,
	}, nil
}

// CheckFileExists reports an error if the file cannot be opened for reading.
func CheckFileExists(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s does not exist", path)
	}
	_ = f.Close()
	return nil
}

var waitRangeRe = regexp.MustCompile(`^((0|[1-9][0-9]*)(\.[0-9]+)?)(,((0|[1-9][0-9]*)(\.[0-9]+)?))?$`)

// ParseWaitRange parses "x" or "x,y" where x and y are non-negative decimals
// with no leading zeros. A single number yields equal bounds. max < min is an
// error.
func ParseWaitRange(s string) (min, max float64, err error) {
	m := waitRangeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf(
			"invalid wait range expression %q (should be \"x,y\" where x and y are floats)", s)
	}
	min, _ = strconv.ParseFloat(m[1], 64)
	if m[5] != "" {
		max, _ = strconv.ParseFloat(m[5], 64)
	} else {
		max = min
	}
	if max < min {
		return 0, 0, fmt.Errorf("invalid wait range expression %q (%g < %g)", s, max, min)
	}
	return min, max, nil
}

// ParseProductSizes parses a comma-separated list of non-negative integers.
//
// Quirk, kept on purpose: parsing consumes leading digit runs and stops at the
// first token that does not start with a digit, so "45,abc,7" yields [45] and
// "4x5" yields [4]. Malformed tails are silently dropped, never rejected.
func ParseProductSizes(s string) []uint64 {
	sizes := []uint64{}
	i := 0
	for i < len(s) {
		start := i
		var v uint64
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			v = v*10 + uint64(s[i]-'0')
			i++
		}
		if i == start {
			break
		}
		sizes = append(sizes, v)
		if i < len(s) && s[i] == ',' {
			i++
		}
	}
	return sizes
}
