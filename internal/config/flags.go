package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flag.String("log-file", "", "Write logs to this file as well")
	flagMeshShading = flag.Bool("mesh-shading", false, "Target a device with mesh shaders")
	flagTaskShading = flag.Bool("task-shading", false, "Target a device with task shaders (implies -mesh-shading)")
	flagProbe       = flag.Bool("probe", false, "Read device capabilities from the local GPU")
	flagWorkers     = flag.Int("workers", 0, "Parallel fragments in batch mode")
	flagOutput      = flag.String("out", "", "Output directory for batch mode")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagMeshShading {
		cfg.Device.MeshShading = true
	}
	if *flagTaskShading {
		cfg.Device.MeshShading = true
		cfg.Device.TaskShading = true
	}
	if *flagProbe {
		cfg.Device.Probe = true
	}
	if *flagWorkers > 0 {
		cfg.Batch.Workers = *flagWorkers
	}
	if *flagOutput != "" {
		cfg.Batch.OutputDir = *flagOutput
	}
}
