package triage

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// BuildMetadata reads the FuzzManager metadata shipped next to the target
// binary and returns the abbreviated product name (mozilla-central -> m-c)
// and the source revision.
func BuildMetadata(buildDir string) (product, revision string, err error) {
	path := filepath.Join(buildDir, "firefox.fuzzmanagerconf")
	cfg, err := ini.Load(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read build metadata %s: %w", path, err)
	}

	main := cfg.Section("Main")
	fullProduct := main.Key("product").String()
	revision = main.Key("product_version").String()
	if fullProduct == "" || revision == "" {
		return "", "", fmt.Errorf("incomplete build metadata in %s", path)
	}

	var initials []string
	for _, part := range strings.Split(fullProduct, "-") {
		if part != "" {
			initials = append(initials, part[:1])
		}
	}
	return strings.Join(initials, "-"), revision, nil
}
