package wxapkg

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEOF is returned by Cursor reads that run past the buffer
var ErrUnexpectedEOF = errors.New("unexpected end of data")

// HeaderEntry is the FormatError.Entry value for failures in the fixed header
const HeaderEntry = -1

// FormatError reports an archive that does not match the container layout.
// It is always fatal for the archive it was produced from.
type FormatError struct {
	Entry  int // file table index, or HeaderEntry
	Offset int // byte offset where the problem was found
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	where := "header"
	if e.Entry != HeaderEntry {
		where = fmt.Sprintf("entry %d", e.Entry)
	}
	msg := fmt.Sprintf("invalid archive: %s at offset %d: %s", where, e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

var (
	// ErrMissingParameter means an archive needs decrypting but no wxid was
	// given and none could be found in the input path.
	ErrMissingParameter = errors.New("wxid is required to decrypt this archive")
	// ErrUnsupportedPlatform means no wxid resolver is available on this host.
	ErrUnsupportedPlatform = errors.New("unsupported platform for decryption")
)

// ConfigError is returned before any decoding happens when decryption
// cannot be set up.
type ConfigError struct {
	Input string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Input == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Input, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
