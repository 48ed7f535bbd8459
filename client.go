package dozer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client retrieves published Artifacts from a `dozer serve` API.
type Client struct {
	HTTPClient *http.Client
	Base       *url.URL
}

func (c *Client) init() error {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Base == nil {
		var err error
		c.Base, err = url.Parse("http://localhost:8080/")
		return err
	}
	return nil
}

func (c *Client) get(ctx context.Context, accept string, elems ...string) (*http.Response, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base.JoinPath(elems...).String(), nil)
	if err != nil {
		return nil, err
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()

		body := map[string]string{}
		if err = json.NewDecoder(res.Body).Decode(&body); err == nil {
			if body["error"] != "" {
				return nil, fmt.Errorf("http status code %d: %s", res.StatusCode, body["error"])
			}
		}

		return nil, fmt.Errorf("http status code %d", res.StatusCode)
	}

	return res, nil
}

// GetArtifacts lists the published Artifacts, only those
// of packageID if it is not empty.
func (c *Client) GetArtifacts(ctx context.Context, packageID string) ([]Artifact, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	base := *c.Base
	if packageID != "" {
		q := base.Query()
		q.Set("package", packageID)
		base.RawQuery = q.Encode()
	}

	cli := &Client{HTTPClient: c.HTTPClient, Base: &base}

	res, err := cli.get(ctx, "application/json", "/artifacts")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	artifacts := []Artifact{}
	if err = json.NewDecoder(res.Body).Decode(&artifacts); err != nil {
		return nil, err
	}

	return artifacts, nil
}

// GetArtifact gets the Artifact of the given version of packageID built in
// mode. version may be "latest" or empty to get the highest published
// version. mode may be empty to get the most recently published build.
func (c *Client) GetArtifact(ctx context.Context, packageID, version, mode string) (*Artifact, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	if version == "" {
		version = "latest"
	}

	base := *c.Base
	if mode != "" {
		q := base.Query()
		q.Set("mode", mode)
		base.RawQuery = q.Encode()
	}

	cli := &Client{HTTPClient: c.HTTPClient, Base: &base}

	res, err := cli.get(ctx, "application/json", "/artifacts", packageID, version)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	artifact := &Artifact{}
	if err = json.NewDecoder(res.Body).Decode(artifact); err != nil {
		return nil, err
	}

	return artifact, nil
}

// DownloadArtifact opens the package file of artifact for reading.
// The caller must close the returned io.ReadCloser.
func (c *Client) DownloadArtifact(ctx context.Context, artifact *Artifact) (io.ReadCloser, error) {
	res, err := c.get(ctx, "", "/artifacts", artifact.PackageID, artifact.Version, artifact.File)
	if err != nil {
		return nil, err
	}

	return res.Body, nil
}
