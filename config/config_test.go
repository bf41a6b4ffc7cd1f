package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "keyscope/config"
	"keyscope/velocity"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	p := velocity.DefaultProfile()
	p.LetOff = 2600
	cfg.SetProfile(66, p)
	cfg.SetProfile(60, velocity.DefaultProfile())
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 2600, loaded.ProfileFor(66).LetOff)
	assert.Equal(t, velocity.DefaultProfile(), loaded.ProfileFor(1))
	assert.Equal(t, []uint8{60, 66}, loaded.Notes())
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"estimator":"sg"}`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "sg", cfg.Estimator)
	assert.Equal(t, 12, cfg.Capture.RecordFormat)
	assert.Equal(t, velocity.DefaultProfile(), cfg.DefaultProfile)
}

func TestLoadRejectsBadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"profiles":{"65":{"letOff":100,"strike":200,"drop":300,"velocityConst":80,"velocitySlope":70}}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "note 65")
}

func TestLoadRejectsBadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profiles":{"c4":{}}}`), 0644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "not a note number")
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestRecordTick(t *testing.T) {
	assert.Equal(t, 1e-3, DefaultConfig().Capture.RecordTick)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"capture":{"recordTick":-1}}`), 0644))
	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "record tick")
}
