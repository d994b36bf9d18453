package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/Faultbox/atlasbuild/internal/atlas"
	"github.com/Faultbox/atlasbuild/internal/source"
)

func cmdHull(args []string) error {
	fs := flag.NewFlagSet("hull", flag.ExitOnError)
	n := fs.Int("n", 8, "Maximum hull vertices (0 = rectangle)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: atlastool hull [-n N] <image>")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	img, err := source.DecodeImage(fs.Arg(0), data)
	if err != nil {
		return err
	}

	g := atlas.BuildConvexHull(img, *n)
	pterm.Info.Printf("%s: %dx%d, %d vertices\n", fs.Arg(0), g.Width, g.Height, g.VertexCount())

	rows := [][]string{{"#", "X", "Y"}}
	for i := 0; i < g.VertexCount(); i++ {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.4f", g.Vertices[2*i]),
			fmt.Sprintf("%.4f", g.Vertices[2*i+1]),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
