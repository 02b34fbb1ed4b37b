package utils

import (
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"
)

var (
	invalidDeviceChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	repeatedHyphens    = regexp.MustCompile(`-+`)
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	return os.Hostname()
}

// SanitizeDeviceName lowercases name, turns spaces into hyphens and drops
// everything else that is not valid in a device alias.
func SanitizeDeviceName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidDeviceChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		name = "device"
	}
	return name
}

// GenerateDeviceName derives a device alias from the hostname that does not
// collide with existing aliases. Conflicts get a -2, -3, ... suffix.
func GenerateDeviceName(existing []string) string {
	base, err := GetHostname()
	if err != nil {
		if base, err = GetUsername(); err != nil {
			base = "device"
		}
	}
	base = SanitizeDeviceName(base)

	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[strings.ToLower(name)] = true
	}

	name := base
	for suffix := 2; taken[name]; suffix++ {
		name = base + "-" + strconv.Itoa(suffix)
	}
	return name
}
