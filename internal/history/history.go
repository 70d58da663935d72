// Package history records triage runs (repro and reduce dispatches) in a
// local sqlite database under the data dir.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/crashtriage/bugconf/internal/core"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type HistoryManager struct {
	db *gorm.DB
}

// RunEntry records one dispatch to an external tool.
type RunEntry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	Kind      string // "repro" or "reduce"
	Command   string // full external command line
	Directory string
	Build     string
	Testcase  string
	ExitCode  sql.NullInt32
}

const (
	historySchemaVersion = 1
)

func NewHistoryManager(dbFilePath string) (*HistoryManager, error) {
	dbFileExists := true
	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		dbFileExists = false
	} else if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if needsMigration(dbFileExists, db) {
		if err := db.AutoMigrate(&RunEntry{}); err != nil {
			return nil, fmt.Errorf("failed to migrate history schema: %w", err)
		}
		if err := writeSchemaVersion(historySchemaVersion); err != nil {
			return nil, fmt.Errorf("failed to write history schema version: %w", err)
		}
	}

	return &HistoryManager{
		db: db,
	}, nil
}

func needsMigration(dbFileExists bool, db *gorm.DB) bool {
	if !dbFileExists {
		return true
	}

	versionMatches, err := schemaVersionMatches()
	if err != nil || !versionMatches {
		return true
	}

	// If the version marker is present but the table is missing (corruption or
	// manual deletion), re-run migrations to restore the schema.
	return !db.Migrator().HasTable(&RunEntry{})
}

func writeSchemaVersion(version int) error {
	return os.WriteFile(schemaVersionPath(), []byte(strconv.Itoa(version)), 0644)
}

func schemaVersionMatches() (bool, error) {
	data, err := os.ReadFile(schemaVersionPath())
	if err != nil {
		return false, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}
	if version != historySchemaVersion {
		return false, fmt.Errorf("history schema version mismatch: got %d, want %d", version, historySchemaVersion)
	}
	return true, nil
}

func schemaVersionPath() string {
	return filepath.Join(core.DataDir(), "history_schema_version")
}

// StartRun records a dispatch before the external tool launches.
func (historyManager *HistoryManager) StartRun(kind, command, directory, build, testcase string) (*RunEntry, error) {
	entry := RunEntry{
		Kind:      kind,
		Command:   command,
		Directory: directory,
		Build:     build,
		Testcase:  testcase,
	}

	result := historyManager.db.Create(&entry)
	if result.Error != nil {
		return nil, result.Error
	}

	return &entry, nil
}

// FinishRun records the external tool's exit status on a started entry.
func (historyManager *HistoryManager) FinishRun(entry *RunEntry, exitCode int) (*RunEntry, error) {
	entry.ExitCode = sql.NullInt32{Int32: int32(exitCode), Valid: true}

	result := historyManager.db.Save(entry)
	if result.Error != nil {
		return nil, result.Error
	}

	return entry, nil
}

// GetRecentRuns returns the most recent runs, oldest first, optionally
// filtered by working directory.
func (historyManager *HistoryManager) GetRecentRuns(directory string, limit int) ([]RunEntry, error) {
	var entries []RunEntry
	var db = historyManager.db
	if directory != "" {
		db = db.Where("directory = ?", directory)
	}
	result := db.Order("created_at desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	slices.Reverse(entries)
	return entries, nil
}

// GetRunsForBuild returns the most recent runs against a given build.
func (historyManager *HistoryManager) GetRunsForBuild(build string, limit int) ([]RunEntry, error) {
	var entries []RunEntry
	result := historyManager.db.Where("build = ?", build).
		Order("created_at desc").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}
