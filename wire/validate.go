package wire

import (
	"unicode/utf8"

	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/errcode"
)

// ValidString reports whether s is valid UTF-8 containing no NUL byte.
// Any violation turns the enclosing field decode into an Invalid frame.
func ValidString(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return false
		}
	}
	return true
}

// ValidateWalkNames enforces the walk contract: depth <= MaxWalkDepth,
// no ".." component, no empty component, every component a valid,
// bounded UTF-8 string.
func ValidateWalkNames(names []string) error {
	if len(names) > constants.MaxWalkDepth {
		return errcode.New("walk", errcode.Invalid, "walk depth exceeds bound")
	}
	for _, n := range names {
		if n == "" || n == ".." {
			return errcode.New("walk", errcode.Invalid, "empty or parent component")
		}
		if len(n) > constants.MaxPathComponent {
			return errcode.New("walk", errcode.Invalid, "path component too long")
		}
		if !ValidString(n) {
			return errcode.New("walk", errcode.Invalid, "non-UTF-8 or embedded NUL")
		}
	}
	return nil
}
