package utils

import (
	"regexp"
	"strings"

	"github.com/PolarWolf314/kowhai/internal/ui"
)

var (
	// emailRegex checks for local-part@domain.tld.
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	deviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
)

// FormatPaths formats a slice of paths into an indented list.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// IsValidEmail checks if the given string is a valid email address format.
func IsValidEmail(email string) bool {
	return email != "" && emailRegex.MatchString(email)
}

// IsValidDeviceName checks if a device alias is alphanumeric with hyphens
// and underscores. Aliases double as key directory names.
func IsValidDeviceName(name string) bool {
	return name != "" && deviceNameRegex.MatchString(name)
}
