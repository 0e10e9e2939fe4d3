package logging

// Config defines the logging section of inkwell.yml.
type Config struct {
	Level        string       `yaml:"level" mapstructure:"level"`
	ReportCaller bool         `yaml:"report_caller" mapstructure:"report_caller"`
	Format       FormatConfig `yaml:"format" mapstructure:"format"`
	File         FileConfig   `yaml:"file" mapstructure:"file"`
}

// FormatConfig controls the text formatter output.
type FormatConfig struct {
	Preset           string `yaml:"preset" mapstructure:"preset"` // "", "json", "simple"
	DisableTimestamp bool   `yaml:"disable_timestamp" mapstructure:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component" mapstructure:"disable_component"`
	DisableColors    bool   `yaml:"disable_colors" mapstructure:"disable_colors"`
}

// FileConfig controls the optional file sink.
type FileConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}
