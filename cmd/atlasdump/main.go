// Command atlasdump packs a directory of sprites and a line of glyphs into
// a texture cache and writes every atlas layer as a PNG.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/texcache"
)

func main() {
	app := cli.NewApp()

	app.Name = "atlasdump"
	app.Usage = "Pack sprites and glyphs into texture atlases and dump them"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"ATLASDUMP_CONFIG"},
			Usage:   "path to TOML config file",
		},
		&cli.StringFlag{
			Name:  "sprites",
			Usage: "directory of PNG, GIF or BMP sprites",
		},
		&cli.StringFlag{
			Name:  "text",
			Usage: "glyphs to rasterize with the built-in face",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output directory",
		},
		&cli.IntFlag{
			Name:  "atlas-size",
			Usage: "atlas edge in pixels",
		},
		&cli.IntFlag{
			Name:  "smallest-slot",
			Usage: "smallest slot edge in pixels",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "atlas format: r8 or rgba",
		},
		&cli.IntFlag{
			Name:  "colors",
			Usage: "master palette size when quantizing true-colour sprites",
		},
		&cli.StringFlag{
			Name:  "save-config",
			Usage: "write the effective configuration to this file and exit",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.Bool("verbose") {
			texcache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
				&slog.HandlerOptions{Level: slog.LevelDebug})))
		}

		conf, err := loadConfig(c.String("config"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		applyFlags(c, &conf)

		if path := c.String("save-config"); path != "" {
			if err := writeConfig(path, conf); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		}

		res, err := run(conf)
		if err != nil {
			return cli.Exit(err, 1)
		}
		log.Printf("%d sprites, %d glyphs, %d atlases, %d layers written to %s",
			res.Stats.Images, res.Stats.Glyphs, res.Stats.Atlases, len(res.Layers), conf.Out)
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// applyFlags overrides conf with every flag set on the command line.
func applyFlags(c *cli.Context, conf *config) {
	if c.IsSet("sprites") {
		conf.Sprites = c.String("sprites")
	}
	if c.IsSet("text") {
		conf.Text = c.String("text")
	}
	if c.IsSet("out") {
		conf.Out = c.String("out")
	}
	if c.IsSet("atlas-size") {
		conf.AtlasSize = c.Int("atlas-size")
	}
	if c.IsSet("smallest-slot") {
		conf.SmallestSlot = c.Int("smallest-slot")
	}
	if c.IsSet("format") {
		conf.Format = c.String("format")
	}
	if c.IsSet("colors") {
		conf.Colors = c.Int("colors")
	}
}
