package android

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/frantjc/dozer/apktool"
	"github.com/frantjc/dozer/keytool"
)

// APKDecoder reads the metadata of a built .apk by decoding it
// with `apktool`. The .apk itself is never modified.
type APKDecoder struct {
	Name string

	apktool  string
	keytool  string
	dir      string
	decoded  bool
	manifest *Manifest
	metadata *apktool.Metadata
}

type APKDecoderOpt func(*APKDecoder)

func WithAPKTool(b string) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.apktool = b
	}
}

func WithKeytool(b string) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.keytool = b
	}
}

func NewAPKDecoder(name string, opts ...APKDecoderOpt) *APKDecoder {
	ad := &APKDecoder{Name: name, keytool: "keytool", apktool: "apktool"}

	for _, opt := range opts {
		opt(ad)
	}

	return ad
}

func (a *APKDecoder) decode(ctx context.Context) error {
	if a.decoded {
		return nil
	} else if a.dir == "" {
		var err error
		if a.dir, err = os.MkdirTemp("", "dozer-apk-*"); err != nil {
			return err
		}
	}

	opts := &apktool.DecodeOpts{
		Force:           true,
		NoSources:       true,
		OutputDirectory: a.dir,
	}

	if err := apktool.Command(a.apktool).Decode(ctx, a.Name, opts); err != nil {
		return err
	}

	a.decoded = true

	return nil
}

func (a *APKDecoder) Manifest(ctx context.Context) (*Manifest, error) {
	if err := a.decode(ctx); err != nil {
		return nil, err
	}

	if a.manifest != nil {
		return a.manifest, nil
	}

	f, err := os.Open(filepath.Join(a.dir, AndroidManifestName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	manifest := &Manifest{}
	if err = xml.NewDecoder(f).Decode(manifest); err != nil {
		return nil, err
	}
	a.manifest = manifest

	return a.manifest, nil
}

// Metadata returns the apktool.yml of the .apk. `apktool` moves the SDK
// and version information out of the decoded AndroidManifest.xml into it.
func (a *APKDecoder) Metadata(ctx context.Context) (*apktool.Metadata, error) {
	if err := a.decode(ctx); err != nil {
		return nil, err
	}

	if a.metadata != nil {
		return a.metadata, nil
	}

	f, err := os.Open(filepath.Join(a.dir, apktool.MetadataName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if a.metadata, err = apktool.DecodeMetadata(f); err != nil {
		return nil, err
	}

	return a.metadata, nil
}

func (a *APKDecoder) SHA256CertFingerprints(ctx context.Context) (string, error) {
	return keytool.Command(a.keytool).SHA256CertFingerprints(ctx, a.Name)
}

// Close removes the decoded contents of the .apk,
// leaving the .apk itself in place.
func (a *APKDecoder) Close() error {
	if a.dir != "" {
		if err := os.RemoveAll(a.dir); err != nil {
			return err
		}
		a.dir = ""
	}

	a.decoded = false
	a.metadata = nil
	a.manifest = nil

	return nil
}
