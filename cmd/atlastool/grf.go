package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"github.com/Faultbox/atlasbuild/pkg/grf"
)

func cmdGRF(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: atlastool grf <list|extract> <file.grf> ...")
	}
	switch args[0] {
	case "list", "ls":
		return cmdGRFList(args[1:])
	case "extract", "x":
		return cmdGRFExtract(args[1:])
	default:
		return fmt.Errorf("unknown grf command: %s", args[0])
	}
}

func cmdGRFList(args []string) error {
	fs := flag.NewFlagSet("grf list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: atlastool grf list [-n N] <file.grf> [pattern]")
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	files := matchFiles(archive.List(), fs.Arg(1))
	if *limit > 0 && len(files) > *limit {
		files = files[:*limit]
	}
	for _, f := range files {
		fmt.Println(f)
	}
	pterm.Info.Printf("%d of %d files\n", len(files), archive.Len())
	return nil
}

func cmdGRFExtract(args []string) error {
	fs := flag.NewFlagSet("grf extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return errors.New("usage: atlastool grf extract <file.grf> <pattern> [output_dir]")
	}
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	files := matchFiles(archive.List(), fs.Arg(1))
	if len(files) == 0 {
		return fmt.Errorf("no files match %q", fs.Arg(1))
	}
	n, err := extractFiles(archive, files, outputDir)
	pterm.Info.Printf("Extracted %d files to %s\n", n, outputDir)
	return err
}

// matchFiles filters names by a case-insensitive glob on the base name or a substring of
// the path. An empty pattern matches everything.
func matchFiles(names []string, pattern string) []string {
	if pattern == "" {
		return names
	}
	pattern = strings.ToLower(strings.ReplaceAll(pattern, `\`, "/"))
	var out []string
	for _, n := range names {
		lower := strings.ToLower(n)
		if ok, _ := path.Match(pattern, path.Base(lower)); ok || strings.Contains(lower, pattern) {
			out = append(out, n)
		}
	}
	return out
}

// extractFiles writes names below dir, keeping the archive directory structure.
func extractFiles(archive *grf.Archive, names []string, dir string) (int, error) {
	var errs []error
	n := 0
	for _, name := range names {
		data, err := archive.ReadFile(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
