package config

// ConfigurationError represents invalid or missing configuration. It is the
// only error class that is fatal at startup.
type ConfigurationError struct {
	Path    string
	Message string
	Hint    string // suggested fix
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Message != "" {
		msg += "\n" + e.Message
	}
	if e.Hint != "" {
		msg += "\nFix: " + e.Hint
	}
	return msg
}
