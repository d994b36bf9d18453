// atlastool builds texture-set atlases from YAML descriptors and inspects the results.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "build", "b":
		err = cmdBuild(args)
	case "info":
		err = cmdInfo(args)
	case "hull":
		err = cmdHull(args)
	case "grf":
		err = cmdGRF(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`atlastool - texture atlas builder

Usage:
  atlastool <command> [options]

Commands:
  build [flags] <atlas.yaml>...    Build atlases (.texturesetc + PNG pages)
  info <file.texturesetc>          Show a texture set's quads and animations
  hull [-n N] <image>              Print the convex hull of an image
  grf list <file.grf> [pattern]    List archive files (glob on name or substring)
  grf extract <file.grf> <pattern> [dir]
                                   Extract matching files
  config init [-force] [-local]    Write the default config
  config show [build flags]        Print the effective config
  help                             Show this help

Build flags:
  -config <file>    Config file (default ./atlasbuild.yaml or the user config dir)
  -out <dir>        Output directory
  -workers <n>      Atlases built in parallel
  -debug            Debug logging
  -log-file <file>  Also log to a rotating file

Examples:
  atlastool build -out dist atlases/*.yaml
  atlastool info dist/hero.texturesetc
  atlastool hull -n 6 sprites/sword.png
  atlastool grf list data.grf "*.spr"`)
}
