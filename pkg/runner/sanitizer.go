package runner

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/webflow/pkg/domain"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "WEBFLOW_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitizer cleans user input before it reaches a flow as request parameters.
type Sanitizer struct {
	// MaxSize is the largest accepted value in bytes. Larger values are
	// rejected, never truncated.
	MaxSize int
}

// NewSanitizer returns a sanitizer limited by WEBFLOW_MAX_INPUT_SIZE, or
// DefaultMaxInputSize when unset or invalid.
func NewSanitizer() Sanitizer {
	size := DefaultMaxInputSize
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			size = n
		}
	}
	return Sanitizer{MaxSize: size}
}

// Clean enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return. ANSI escapes lose
// their ESC byte so they can no longer drive the terminal or poison logs.
func (s Sanitizer) Clean(input string) (string, error) {
	if len(input) > s.MaxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), s.MaxSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, isUnsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if isUnsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

// Params cleans form values into request parameters. A key with a single
// value maps to a string, repeated keys map to a []string.
func (s Sanitizer) Params(form map[string][]string) (domain.Attributes, error) {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := domain.NewAttributes()
	for _, k := range keys {
		values := make([]string, 0, len(form[k]))
		for _, v := range form[k] {
			clean, err := s.Clean(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", k, err)
			}
			values = append(values, clean)
		}
		switch len(values) {
		case 0:
		case 1:
			params[k] = values[0]
		default:
			params[k] = values
		}
	}
	return params, nil
}

// SanitizeInput cleans input with the sanitizer NewSanitizer returns.
func SanitizeInput(input string) (string, error) {
	return NewSanitizer().Clean(input)
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
