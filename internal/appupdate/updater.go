package appupdate

import (
	"context"

	"github.com/creativeprojects/go-selfupdate"
)

// Release describes one published release.
type Release interface {
	Version() string
	AssetURL() string
	AssetName() string
}

// Updater detects and applies releases. Tests substitute a mock.
type Updater interface {
	DetectLatest(ctx context.Context, repo string) (Release, bool, error)
	UpdateTo(ctx context.Context, assetURL, assetName, exePath string) error
}

// DefaultUpdater backs Updater with GitHub releases.
type DefaultUpdater struct{}

func (DefaultUpdater) DetectLatest(ctx context.Context, repo string) (Release, bool, error) {
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil || !found || latest == nil {
		return nil, found, err
	}
	return githubRelease{release: latest}, true, nil
}

func (DefaultUpdater) UpdateTo(ctx context.Context, assetURL, assetName, exePath string) error {
	return selfupdate.UpdateTo(ctx, assetURL, assetName, exePath)
}

type githubRelease struct {
	release *selfupdate.Release
}

func (r githubRelease) Version() string {
	return r.release.Version()
}

func (r githubRelease) AssetURL() string {
	return r.release.AssetURL
}

func (r githubRelease) AssetName() string {
	return r.release.AssetName
}
