// Package registry provides RegistryClient adapters: an HTTP registry, a
// local directory registry for tests and offline use, and a fixed-order
// multiplexer over several registries.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	httpTimeout = 30 * time.Second

	// maxRetries bounds the retry attempts for transient failures.
	maxRetries = 3
)

// HTTPRegistry implements ports.RegistryClient against a registry server.
//
// Endpoints: GET {base}/api/packages/{name}/info for the version listing
// with embedded recipes, GET {base}/packages/{name}/{version}.tar.gz for
// archives.
type HTTPRegistry struct {
	base   string
	client *http.Client
	logger ports.Logger
}

// NewHTTP creates an HTTP registry client for the given base URL.
func NewHTTP(base string, logger ports.Logger) *HTTPRegistry {
	return &HTTPRegistry{
		base:   base,
		client: &http.Client{Timeout: httpTimeout},
		logger: logger,
	}
}

// packageInfo is the registry's info document: every published version
// mapped to its recipe.
type packageInfo struct {
	Versions map[string]json.RawMessage `json:"versions"`
}

// ListVersions returns every published version of the package.
func (r *HTTPRegistry) ListVersions(ctx context.Context, name domain.PackageName) ([]domain.Version, error) {
	info, err := r.fetchInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]domain.Version, 0, len(info.Versions))
	for raw := range info.Versions {
		v, err := domain.ParseVersion(raw)
		if err != nil {
			return nil, zerr.With(err, "package", name.String())
		}
		versions = append(versions, v)
	}
	return domain.SortVersionsDesc(versions), nil
}

// FetchRecipe returns the recipe of one published version.
func (r *HTTPRegistry) FetchRecipe(ctx context.Context, name domain.PackageName, version domain.Version) (*domain.Recipe, error) {
	info, err := r.fetchInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	raw, ok := info.Versions[version.String()]
	if !ok {
		err := zerr.With(domain.ErrVersionNotFound, "package", name.String())
		return nil, zerr.With(err, "version", version.String())
	}
	rec, err := manifest.Parse(raw)
	if err != nil {
		return nil, zerr.With(err, "package", name.String())
	}
	return rec, nil
}

// FetchArchive streams the package archive of one published version.
func (r *HTTPRegistry) FetchArchive(ctx context.Context, name domain.PackageName, version domain.Version) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/packages/%s/%s.tar.gz", r.base, url.PathEscape(name.String()), url.PathEscape(version.String()))
	body, err := r.get(ctx, u)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			err = zerr.With(domain.ErrVersionNotFound, "package", name.String())
			return nil, zerr.With(err, "version", version.String())
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (r *HTTPRegistry) fetchInfo(ctx context.Context, name domain.PackageName) (*packageInfo, error) {
	u := fmt.Sprintf("%s/api/packages/%s/info", r.base, url.PathEscape(name.String()))
	body, err := r.get(ctx, u)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			return nil, zerr.With(domain.ErrPackageNotFound, "package", name.String())
		}
		return nil, err
	}
	var info packageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, zerr.Wrap(zerr.With(err, "url", u), domain.ErrNetworkFetch.Error())
	}
	return &info, nil
}

// get performs a GET with bounded exponential-backoff retries. Transport
// errors and 5xx responses are transient; a 404 is terminal and surfaces
// as ErrPackageNotFound for the caller to refine.
func (r *HTTPRegistry) get(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	attempts := 0

	operation := func() error {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			return err
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(domain.ErrPackageNotFound)
		case resp.StatusCode >= 500:
			if r.logger != nil {
				r.logger.Debug("registry request failed, retrying", "url", u, "status", resp.StatusCode)
			}
			return fmt.Errorf("registry returned status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("registry returned status %d", resp.StatusCode))
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			return nil, err
		}
		wrapped := zerr.Wrap(err, domain.ErrNetworkFetch.Error())
		wrapped = zerr.With(wrapped, "url", u)
		return nil, zerr.With(wrapped, "attempts", attempts)
	}
	return body, nil
}
