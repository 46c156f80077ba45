package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath  = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrInvalidCacheRoot = fmt.Errorf("invalid cache root")

	// Discovery errors.
	ErrMalformedRecord = fmt.Errorf("malformed discovery record")
	ErrInvalidURL      = fmt.Errorf("invalid URL")

	// Transport errors.
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrUnexpectedStatus = fmt.Errorf("unexpected status code")

	// Integrity errors.
	ErrChecksumMismatch = fmt.Errorf("checksum mismatch")

	// Storage errors.
	ErrStorage         = fmt.Errorf("storage failure")
	ErrInvalidPath     = fmt.Errorf("invalid path")
	ErrManifestCorrupt = fmt.Errorf("cache manifest corrupt")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
