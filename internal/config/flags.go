package config

import "flag"

// Flags are the command-line overrides shared by every subcommand.
type Flags struct {
	Config  string
	Debug   bool
	Out     string
	Workers int
	LogFile string
}

// Bind registers the override flags on fs.
func (f *Flags) Bind(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Out, "out", "", "Output directory")
	fs.IntVar(&f.Workers, "workers", 0, "Parallel atlas builds (0 = config value)")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this rotating file")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Out != "" {
		cfg.Build.OutputDir = f.Out
	}
	if f.Workers > 0 {
		cfg.Build.Workers = f.Workers
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
