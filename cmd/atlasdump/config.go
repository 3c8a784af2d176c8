package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/texcache/gpucore"
)

// config is the atlasdump configuration file. Command-line flags override
// any value read from the file.
type config struct {
	Sprites      string `toml:"sprites"`
	Text         string `toml:"text"`
	Out          string `toml:"out"`
	AtlasSize    int    `toml:"atlas_size"`
	SmallestSlot int    `toml:"smallest_slot"`
	Format       string `toml:"format"`
	Colors       int    `toml:"colors"`
	Manifest     bool   `toml:"manifest"`
}

func defaultConfig() config {
	return config{
		Out:          ".",
		AtlasSize:    2048,
		SmallestSlot: 32,
		Format:       "r8",
		Colors:       256,
		Manifest:     true,
	}
}

// loadConfig reads path on top of the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (config, error) {
	conf := defaultConfig()
	if path == "" {
		return conf, nil
	}
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return conf, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return conf, fmt.Errorf("read config %s: unknown key %q", path, undecoded[0].String())
	}
	return conf, nil
}

// writeConfig saves conf as TOML.
func writeConfig(path string, conf config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644) //nolint:gosec // user config, not secret
}

// textureFormat maps the format name used in configs and flags.
func (c config) textureFormat() (gpucore.TextureFormat, error) {
	switch strings.ToLower(c.Format) {
	case "r8", "r8uint", "indexed":
		return gpucore.TextureFormatR8Uint, nil
	case "rgba", "rgba8", "rgba8unorm":
		return gpucore.TextureFormatRGBA8Unorm, nil
	default:
		return 0, fmt.Errorf("unknown format %q", c.Format)
	}
}
