// Package fuzzmanager is a minimal client for the crash-signature management
// service: it fetches crash entries and downloads their testcases. The
// service is an opaque remote collaborator; nothing here interprets crash
// semantics.
package fuzzmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gopkg.in/ini.v1"
)

var (
	// ErrSignatureNotFound indicates the service knows no crash entry for
	// the requested identifier.
	ErrSignatureNotFound = errors.New("signature not found")

	// ErrServiceUnavailable indicates the service could not be reached or
	// answered with a server error. Not retried.
	ErrServiceUnavailable = errors.New("crash service unavailable")
)

// CrashEntry is the subset of the service's crash representation this tool
// consumes.
type CrashEntry struct {
	ID             int    `json:"id"`
	Product        string `json:"product"`
	ProductVersion string `json:"product_version"`
	Testcase       string `json:"testcase"`
	Tool           string `json:"tool"`
	ShortSignature string `json:"shortSignature"`
}

// Client talks to a FuzzManager-compatible REST endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the given server base URL and auth token.
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
}

// NewClientFromConfig builds a client from a .fuzzmanagerconf file. The
// token comes from Main.serverauthtoken, or from the file named by
// Main.serverauthtokenfile when the inline key is absent.
func NewClientFromConfig(confPath string, logger *zap.Logger) (*Client, error) {
	cfg, err := ini.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", confPath, err)
	}

	main := cfg.Section("Main")
	baseURL := fmt.Sprintf("%s://%s:%s",
		main.Key("serverproto").String(),
		main.Key("serverhost").String(),
		main.Key("serverport").String())

	token := main.Key("serverauthtoken").String()
	if token == "" {
		tokenFile := main.Key("serverauthtokenfile").String()
		if tokenFile == "" {
			return nil, fmt.Errorf("%s: no serverauthtoken or serverauthtokenfile configured", confPath)
		}
		content, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read auth token file: %w", err)
		}
		token = strings.TrimSpace(string(content))
	}

	return NewClient(baseURL, token, logger), nil
}

// Crash fetches one crash entry by id.
func (c *Client) Crash(ctx context.Context, id int) (*CrashEntry, error) {
	url := fmt.Sprintf("%s/crashmanager/rest/crashes/%d/", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, fmt.Sprintf("crash %d", id)); err != nil {
		return nil, err
	}

	var crash CrashEntry
	if err := json.NewDecoder(resp.Body).Decode(&crash); err != nil {
		return nil, fmt.Errorf("failed to decode crash entry: %w", err)
	}
	if crash.ID == 0 {
		crash.ID = id
	}
	return &crash, nil
}

// DownloadTestcase downloads the crash's testcase into destDir and returns
// the written filename (the basename of the remote path).
func (c *Client) DownloadTestcase(ctx context.Context, crash *CrashEntry, destDir string) (string, error) {
	if crash.Testcase == "" {
		return "", fmt.Errorf("crash %d has no testcase attached", crash.ID)
	}

	url := fmt.Sprintf("%s/crashmanager/%s", c.baseURL, strings.TrimLeft(crash.Testcase, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	// The testcase endpoint uses basic auth rather than token auth.
	req.SetBasicAuth("fuzzmanager", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "testcase "+crash.Testcase); err != nil {
		return "", err
	}

	name := path.Base(crash.Testcase)
	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to download testcase: %w", err)
	}

	c.logger.Info("downloaded testcase",
		zap.String("file", name),
		zap.String("size", humanize.Bytes(uint64(written))))
	return name, nil
}

func checkStatus(resp *http.Response, what string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrSignatureNotFound, what)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s: %s", ErrServiceUnavailable, what, resp.Status)
	default:
		return fmt.Errorf("request for %s failed: %s", what, resp.Status)
	}
}
