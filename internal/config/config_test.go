package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWaitRange_SingleNumber(t *testing.T) {
	min, max, err := ParseWaitRange("2")
	require.NoError(t, err)
	assert.Equal(t, 2.0, min)
	assert.Equal(t, 2.0, max)
}

func TestParseWaitRange_Pair(t *testing.T) {
	min, max, err := ParseWaitRange("1.34,3.56")
	require.NoError(t, err)
	assert.Equal(t, 1.34, min)
	assert.Equal(t, 3.56, max)
}

func TestParseWaitRange_Zero(t *testing.T) {
	min, max, err := ParseWaitRange("0,0")
	require.NoError(t, err)
	assert.Zero(t, min)
	assert.Zero(t, max)
}

func TestParseWaitRange_MaxBelowMin(t *testing.T) {
	_, _, err := ParseWaitRange("2,1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2,1")
}

func TestParseWaitRange_Malformed(t *testing.T) {
	for _, s := range []string{"", "abc", "-1", "1,", ",2", "1,2,3", "01", "1.2.3", "1, 2"} {
		_, _, err := ParseWaitRange(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseProductSizes_WellFormed(t *testing.T) {
	assert.Equal(t, []uint64{45, 67, 123}, ParseProductSizes("45,67,123"))
	assert.Equal(t, []uint64{10, 0, 5}, ParseProductSizes("10,0,5"))
	assert.Equal(t, []uint64{7}, ParseProductSizes("7"))
}

func TestParseProductSizes_Empty(t *testing.T) {
	assert.Empty(t, ParseProductSizes(""))
}

// Malformed tails are skipped, not rejected; parsing stops at the first
// token that does not start with a digit.
func TestParseProductSizes_MalformedTokensSkipped(t *testing.T) {
	assert.Equal(t, []uint64{45}, ParseProductSizes("45,abc,7"))
	assert.Equal(t, []uint64{4}, ParseProductSizes("4x5"))
	assert.Empty(t, ParseProductSizes("abc"))
}

func TestCheckFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: localhost"), 0o644))

	assert.NoError(t, CheckFileExists(path))
	assert.Error(t, CheckFileExists(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoad_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: localhost"), 0o644))

	cfg, err := Load(Raw{
		Protocol:       "memory",
		ConnectionFile: path,
		DataSet:        "testds",
		Label:          "p",
		ProductSizes:   "10,0,5",
		LogLevel:       "info",
		WaitRange:      "0,0",
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 0, 5}, cfg.ProductSizes)
	assert.Zero(t, cfg.WaitMin)
	assert.Zero(t, cfg.WaitMax)
}

func TestLoad_MissingConnectionFile(t *testing.T) {
	_, err := Load(Raw{
		Protocol:       "memory",
		ConnectionFile: filepath.Join(t.TempDir(), "missing.yaml"),
		DataSet:        "testds",
		Label:          "p",
		ProductSizes:   "10",
		LogLevel:       "info",
		WaitRange:      "0,0",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_RejectsEmptyRequiredValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: localhost"), 0o644))

	base := Raw{
		Protocol:       "memory",
		ConnectionFile: path,
		DataSet:        "testds",
		Label:          "p",
		ProductSizes:   "10",
		LogLevel:       "info",
		WaitRange:      "0,0",
	}

	noProto := base
	noProto.Protocol = ""
	_, err := Load(noProto)
	assert.Error(t, err)

	noDS := base
	noDS.DataSet = ""
	_, err = Load(noDS)
	assert.Error(t, err)

	noLabel := base
	noLabel.Label = ""
	_, err = Load(noLabel)
	assert.Error(t, err)

	badLevel := base
	badLevel.LogLevel = "loud"
	_, err = Load(badLevel)
	assert.Error(t, err)
}
