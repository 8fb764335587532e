package cleaning

// Config controls business rule cleaning
type Config struct {
	Enabled bool `yaml:"enabled" default:"true"`
}
