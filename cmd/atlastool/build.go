package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/atlasbuild/internal/atlas"
	"github.com/Faultbox/atlasbuild/internal/config"
	"github.com/Faultbox/atlasbuild/internal/logger"
	"github.com/Faultbox/atlasbuild/internal/source"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// buildSummary describes one finished atlas.
type buildSummary struct {
	ID         string
	Descriptor string
	TextureSet string
	Pages      []string
	PageWidth  int
	PageHeight int
	Quads      int
	Animations int
	Elapsed    time.Duration
}

func cmdBuild(args []string) error {
	var flags config.Flags
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	flags.Bind(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: atlastool build [flags] <atlas.yaml>...")
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	defer logger.Sync()
	logger.Sugar.Debugf("building %d atlases into %s with %d workers", fs.NArg(), cfg.Build.OutputDir, cfg.Build.Workers)

	summaries, err := runBuild(context.Background(), cfg, fs.Args())
	if err != nil {
		return err
	}
	printSummaries(summaries)
	return nil
}

// runBuild builds every descriptor, at most cfg.Build.Workers at a time.
func runBuild(ctx context.Context, cfg *config.Config, paths []string) ([]buildSummary, error) {
	owners := make(map[string]string, len(paths))
	for _, p := range paths {
		desc, err := source.LoadDescriptor(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := owners[desc.ID]; ok {
			return nil, fmt.Errorf("atlas id %q used by both %s and %s", desc.ID, prev, p)
		}
		owners[desc.ID] = p
	}

	if err := os.MkdirAll(cfg.Build.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	summaries := make([]buildSummary, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Build.Workers, 1))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			s, err := buildOne(ctx, cfg.Build, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func buildOne(ctx context.Context, bc config.BuildConfig, path string) (buildSummary, error) {
	start := time.Now()

	b, err := source.Open(path, bc)
	if err != nil {
		return buildSummary{}, err
	}
	res, err := atlas.Generate(ctx, b.Images, b.Animations, b.Options)
	if err != nil {
		return buildSummary{}, err
	}

	s := buildSummary{
		ID:         b.ID,
		Descriptor: path,
		TextureSet: filepath.Join(bc.OutputDir, b.ID+".texturesetc"),
		Quads:      res.TextureSet.QuadCount(),
		Animations: len(res.TextureSet.Animations),
	}
	s.PageWidth, s.PageHeight = res.Layout.PageSize()

	if err := textureset.WriteFile(s.TextureSet, res.TextureSet); err != nil {
		return buildSummary{}, err
	}
	for i, page := range res.Pages {
		name := filepath.Join(bc.OutputDir, fmt.Sprintf("%s_%d.png", b.ID, i))
		if err := imaging.Save(page, name); err != nil {
			return buildSummary{}, fmt.Errorf("saving page %d: %w", i, err)
		}
		s.Pages = append(s.Pages, name)
	}

	s.Elapsed = time.Since(start)
	logger.Named("build").Info("atlas written",
		zap.String("atlas", b.ID),
		zap.String("output", s.TextureSet),
		zap.Int("pages", len(s.Pages)))
	return s, nil
}

func printSummaries(summaries []buildSummary) {
	data := [][]string{{"Atlas", "Pages", "Page Size", "Quads", "Animations", "Time"}}
	for _, s := range summaries {
		data = append(data, []string{
			s.ID,
			fmt.Sprintf("%d", len(s.Pages)),
			fmt.Sprintf("%dx%d", s.PageWidth, s.PageHeight),
			fmt.Sprintf("%d", s.Quads),
			fmt.Sprintf("%d", s.Animations),
			s.Elapsed.Round(time.Millisecond).String(),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Success.Printf("Built %d atlas(es)\n", len(summaries))
}
