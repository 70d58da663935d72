package core

import (
	"os"
	"path/filepath"
)

type Paths struct {
	HomeDir           string
	DataDir           string
	LogFile           string
	HistoryFile       string
	LatestVersionFile string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		defaultPaths = &Paths{
			HomeDir:           homeDir,
			DataDir:           filepath.Join(homeDir, ".bugconf"),
			LogFile:           filepath.Join(homeDir, ".bugconf", "bugconf.log"),
			HistoryFile:       filepath.Join(homeDir, ".bugconf", "history.db"),
			LatestVersionFile: filepath.Join(homeDir, ".bugconf", "latest_version.txt"),
		}

		err = os.MkdirAll(defaultPaths.DataDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

func HistoryFile() string {
	ensureDefaultPaths()
	return defaultPaths.HistoryFile
}

func LatestVersionFile() string {
	ensureDefaultPaths()
	return defaultPaths.LatestVersionFile
}

// GlobalConfigPaths returns the candidate locations for the global config,
// in lookup order. The first existing file wins.
func GlobalConfigPaths() []string {
	ensureDefaultPaths()
	return []string{
		filepath.Join(defaultPaths.HomeDir, ".bugconfrc"),
		filepath.Join(defaultPaths.HomeDir, ".config", "bugconf", "config"),
		filepath.Join(defaultPaths.HomeDir, ".config", "bugconf", "config.yaml"),
	}
}

// FuzzManagerConfFile returns the path of the FuzzManager client config.
func FuzzManagerConfFile() string {
	ensureDefaultPaths()
	return filepath.Join(defaultPaths.HomeDir, ".fuzzmanagerconf")
}

// ResetPaths clears the cached paths, forcing them to be reinitialized.
// This is primarily used for testing purposes.
func ResetPaths() {
	defaultPaths = nil
}
