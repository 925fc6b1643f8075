package verify

import (
	"fmt"
	"regexp"
	"strings"
)

const versionSeparator = "@"

var gemNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Identifier names one released version of a package.
type Identifier struct {
	Name    string
	Version string
}

// String is "name-version", the registry's file naming.
func (id Identifier) String() string {
	return id.Name + "-" + id.Version
}

// Display is "name@version".
func (id Identifier) Display() string {
	return id.Name + versionSeparator + id.Version
}

// ParseIdentifier accepts a name and version, or "name@version" with an
// empty version.
func ParseIdentifier(name, version string) (Identifier, error) {
	if version == "" {
		if n, v, ok := strings.Cut(name, versionSeparator); ok {
			name, version = n, v
		}
	}
	name, version = strings.TrimSpace(name), strings.TrimSpace(version)

	if name == "" {
		return Identifier{}, fmt.Errorf("package name is required")
	}
	if !gemNameRe.MatchString(name) {
		return Identifier{}, fmt.Errorf("invalid package name %q", name)
	}
	if version == "" {
		return Identifier{}, fmt.Errorf("version is required for %q", name)
	}
	if strings.ContainsAny(version, "/\\ ") {
		return Identifier{}, fmt.Errorf("invalid version %q", version)
	}
	return Identifier{Name: name, Version: version}, nil
}

// SplitFileName splits "name-version" at the last '-' followed by a digit,
// ignoring a trailing ".gem".
func SplitFileName(base string) (Identifier, bool) {
	base = strings.TrimSuffix(base, ".gem")
	for idx := strings.LastIndex(base, "-"); idx > 0; idx = strings.LastIndex(base[:idx], "-") {
		version := base[idx+1:]
		if version != "" && version[0] >= '0' && version[0] <= '9' {
			return Identifier{Name: base[:idx], Version: version}, true
		}
	}
	return Identifier{}, false
}
