package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/atlasbuild/internal/config"
)

func cmdConfig(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: atlastool config <init|show> [flags]")
	}

	switch args[0] {
	case "init":
		return cmdConfigInit(args[1:])
	case "show":
		return cmdConfigShow(args[1:])
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func cmdConfigInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	local := fs.Bool("local", false, "Write ./atlasbuild.yaml instead of the user config")
	fs.Parse(args)

	path := ""
	if *local {
		path = "atlasbuild.yaml"
	}
	written, err := initConfig(path, *force)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %s", written)
	return nil
}

// initConfig writes the default config to path, or to the user config when path is empty.
func initConfig(path string, force bool) (string, error) {
	cfg := config.Default()
	if path == "" {
		return cfg.Save(force)
	}
	return path, cfg.SaveTo(path, force)
}

func cmdConfigShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	var flags config.Flags
	flags.Bind(fs)
	fs.Parse(args)

	return showConfig(os.Stdout, flags)
}

// showConfig prints the effective config after file and flag overrides.
func showConfig(w io.Writer, flags config.Flags) error {
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
