package config

import "errors"

// ConfigInitError reports a configuration the program cannot start with.
type ConfigInitError struct {
	msg string
}

func (e *ConfigInitError) Error() string {
	return "config: " + e.msg
}

// IsInitError reports whether err carries a *ConfigInitError.
func IsInitError(err error) bool {
	var target *ConfigInitError
	return errors.As(err, &target)
}
