// Package builds enumerates downloaded build directories for completion and
// validates --build arguments against them.
package builds

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

var (
	// ErrBuildPathNotFound indicates the configured buildpath does not exist
	// or is not a directory.
	ErrBuildPathNotFound = errors.New("build path not found")

	// ErrBuildNotFound indicates a --build argument that matches no entry
	// under the buildpath.
	ErrBuildNotFound = errors.New("build not found")
)

// List returns the sorted directory-entry names under buildpath. The listing
// is taken fresh on every call; an existing but empty directory yields an
// empty slice and no error.
func List(buildpath string) ([]string, error) {
	info, err := os.Stat(buildpath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBuildPathNotFound, buildpath)
	}

	entries, err := os.ReadDir(buildpath)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds in %s: %w", buildpath, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Validate checks that build names an entry under buildpath. On a miss the
// error includes up to three close matches as suggestions.
func Validate(buildpath, build string) error {
	names, err := List(buildpath)
	if err != nil {
		return err
	}

	for _, name := range names {
		if name == build {
			return nil
		}
	}

	matches := fuzzy.Find(build, names)
	if len(matches) > 3 {
		matches = matches[:3]
	}
	if len(matches) > 0 {
		suggestions := make([]string, len(matches))
		for i, match := range matches {
			suggestions[i] = match.Str
		}
		return fmt.Errorf("%w: %q (did you mean %s?)", ErrBuildNotFound, build, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("%w: %q", ErrBuildNotFound, build)
}
