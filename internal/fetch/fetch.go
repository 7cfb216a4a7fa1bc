// Package fetch localizes remote plugin sources to the local filesystem.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/strata-install/strata/pkg/logger"
)

const (
	// defaultFetchTimeout bounds a single plugin download.
	defaultFetchTimeout = 30 * time.Second

	// maxPluginSize caps the size of a downloaded plugin.
	maxPluginSize = 16 << 20 // 16 MiB
)

var (
	// ErrUnsupportedScheme is returned for URLs that are not http(s).
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrTooLarge is returned when a download exceeds the size cap.
	ErrTooLarge = errors.New("plugin download exceeds size limit")
)

// Localizer downloads remote plugin sources into temp files.
type Localizer struct {
	client *http.Client
	log    logger.Logger
}

// NewLocalizer creates a Localizer with a timeout-bounded HTTP client.
func NewLocalizer(log logger.Logger) *Localizer {
	return &Localizer{
		client: &http.Client{Timeout: defaultFetchTimeout},
		log:    log,
	}
}

// NewLocalizerWithClient creates a Localizer with a custom HTTP client.
func NewLocalizerWithClient(client *http.Client, log logger.Logger) *Localizer {
	return &Localizer{
		client: client,
		log:    log,
	}
}

// IsRemote reports whether the given path is an http(s) URL.
func IsRemote(rawPath string) bool {
	u, err := url.Parse(rawPath)
	if err != nil {
		return false
	}

	return u.Scheme == "http" || u.Scheme == "https"
}

// Localize downloads the plugin at rawURL to a temp file and returns the
// local path. The original file extension is preserved so loader selection
// by extension still works on the localized copy.
func (l *Localizer) Localize(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid plugin URL %q", rawURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "building plugin request")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "fetching plugin from %s", u.Redacted())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("fetching plugin from %s: status %d", u.Redacted(), resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "strata-plugin-*"+path.Ext(u.Path))
	if err != nil {
		return "", errors.Wrap(err, "creating temp file for plugin")
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxPluginSize+1))

	closeErr := tmp.Close()

	if err != nil {
		_ = os.Remove(tmp.Name())

		return "", errors.Wrap(err, "writing plugin to temp file")
	}

	if closeErr != nil {
		_ = os.Remove(tmp.Name())

		return "", errors.Wrap(closeErr, "closing plugin temp file")
	}

	if n > maxPluginSize {
		_ = os.Remove(tmp.Name())

		return "", errors.Wrapf(ErrTooLarge, "more than %s", humanize.IBytes(maxPluginSize))
	}

	l.log.Info("localized remote plugin",
		"url", u.Redacted(),
		"path", tmp.Name(),
		"size", humanize.IBytes(uint64(n)),
	)

	return tmp.Name(), nil
}
