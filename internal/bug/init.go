// Package bug sets up local working folders for crash entries fetched from
// the crash-signature service (the dlcrash and initbug commands).
package bug

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crashtriage/bugconf/internal/fuzzmanager"
	"github.com/crashtriage/bugconf/internal/options"
	"go.uber.org/zap"
)

// CrashService is the remote-service surface needed here. Tests substitute
// a fake; production code passes *fuzzmanager.Client.
type CrashService interface {
	Crash(ctx context.Context, id int) (*fuzzmanager.CrashEntry, error)
	DownloadTestcase(ctx context.Context, crash *fuzzmanager.CrashEntry, destDir string) (string, error)
}

// Initializer downloads crash entries and prepares working folders.
type Initializer struct {
	logger  *zap.Logger
	service CrashService
	loader  *options.Loader
}

// NewInitializer creates a bug initializer.
func NewInitializer(logger *zap.Logger, service CrashService, loader *options.Loader) *Initializer {
	return &Initializer{
		logger:  logger,
		service: service,
		loader:  loader,
	}
}

// Download fetches one crash entry and its testcase into destDir, returning
// the entry and the written testcase filename.
func (i *Initializer) Download(ctx context.Context, id int, destDir string) (*fuzzmanager.CrashEntry, string, error) {
	crash, err := i.service.Crash(ctx, id)
	if err != nil {
		return nil, "", err
	}

	i.logger.Info("fetched crash entry",
		zap.Int("id", id),
		zap.String("product", crash.Product),
		zap.String("product_version", crash.ProductVersion),
		zap.String("signature", crash.ShortSignature))

	name, err := i.service.DownloadTestcase(ctx, crash, destDir)
	if err != nil {
		return nil, "", err
	}
	return crash, name, nil
}

// Init creates (or reuses) a bug-<id> working folder under parentDir,
// downloads the crash's testcase into it, and seeds a local bugconf with the
// crash signature so bcrepro/bcreduce work there immediately. An existing
// bugconf in a reused folder is left untouched.
func (i *Initializer) Init(ctx context.Context, id int, parentDir string) (string, error) {
	dir := filepath.Join(parentDir, fmt.Sprintf("bug-%d", id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create working folder %s: %w", dir, err)
	}

	crash, _, err := i.Download(ctx, id, dir)
	if err != nil {
		return "", err
	}

	_, found, err := i.loader.LoadLocal(dir)
	if err != nil {
		return "", err
	}
	if !found && crash.ShortSignature != "" {
		seed := options.Options{"sig": crash.ShortSignature}
		if err := i.loader.WriteLocal(dir, seed); err != nil {
			return "", err
		}
	}

	return dir, nil
}
