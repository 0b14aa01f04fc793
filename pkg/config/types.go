package config

// Config is the smoketest configuration file.
type Config struct {
	// PluginPaths are scanned after the default plugin directory.
	PluginPaths []string `yaml:"plugin_paths"`
	// CertificateStoreDir is the root of the directory-backed certificate
	// store.
	CertificateStoreDir string       `yaml:"certificate_store_dir"`
	HTTPTimeout         string       `yaml:"http_timeout"`
	CheckTimeout        string       `yaml:"check_timeout"`
	LogLevel            string       `yaml:"log_level"`
	Output              OutputConfig `yaml:"output"`
}

// OutputConfig selects how results are reported.
type OutputConfig struct {
	Format      string `yaml:"format"`
	Path        string `yaml:"path"`
	MetricsFile string `yaml:"metrics_file"`
}
