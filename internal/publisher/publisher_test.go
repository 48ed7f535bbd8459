package publisher_test

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/android"
	"github.com/frantjc/dozer/apktool"
	"github.com/frantjc/dozer/internal/dozerblob"
	"github.com/frantjc/dozer/internal/dozererr"
	"github.com/frantjc/dozer/internal/publisher"
	"github.com/opencontainers/go-digest"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/pubsub/mempubsub"
)

const apkName = "pdfeditor-1.0-arm64-v8a_armeabi-v7a-debug.apk"

type fakeAPK struct {
	manifest string
	metadata *apktool.Metadata
	closed   bool
}

func (f *fakeAPK) Manifest(context.Context) (*android.Manifest, error) {
	manifest := &android.Manifest{}
	return manifest, xml.Unmarshal([]byte(f.manifest), manifest)
}

func (f *fakeAPK) Metadata(context.Context) (*apktool.Metadata, error) {
	if f.metadata == nil {
		return &apktool.Metadata{}, nil
	}

	return f.metadata, nil
}

func (f *fakeAPK) SHA256CertFingerprints(context.Context) (string, error) {
	return "AB:CD", nil
}

func (f *fakeAPK) Close() error {
	f.closed = true
	return nil
}

func androidManifest(pkg, versionName string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="` + pkg + `" android:versionName="` + versionName + `" android:versionCode="10010">
  <uses-sdk android:minSdkVersion="21" android:targetSdkVersion="33" />
  <uses-permission android:name="android.permission.INTERNET" />
</manifest>`
}

func newManifest() *dozer.Manifest {
	m := &dozer.Manifest{
		Title:         "PDF Editor",
		PackageName:   "pdfeditor",
		PackageDomain: "org.example",
		Version:       "1.0",
		Android: dozer.Android{
			Permissions: []string{"INTERNET", "READ_EXTERNAL_STORAGE"},
		},
	}
	m.SetDefaults()
	return m
}

func newOutput(t *testing.T, mode string, files ...string) *dozer.BuildOutput {
	t.Helper()

	out := &dozer.BuildOutput{
		ID:     "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		BinDir: t.TempDir(),
		Target: dozer.Target{Platform: dozer.PlatformAndroid, Mode: mode},
	}

	for _, file := range files {
		if err := os.WriteFile(filepath.Join(out.BinDir, file), []byte(file), 0o644); err != nil {
			t.Error(err)
			t.FailNow()
		}
	}

	return out
}

func assertEmpty(t *testing.T, bucket *blob.Bucket) {
	t.Helper()

	if obj, _ := bucket.List(nil).Next(context.Background()); obj != nil {
		t.Error("expected nothing to be published, found", obj.Key)
	}
}

func TestPublish(t *testing.T) {
	var (
		ctx    = context.Background()
		bucket = memblob.OpenBucket(nil)
		topic  = mempubsub.NewTopic()
		sub    = mempubsub.NewSubscription(topic, time.Minute)
		apk    = &fakeAPK{manifest: androidManifest("org.example.pdfeditor", "1.0")}
		p      = &publisher.Publisher{
			Bucket: bucket,
			Topic:  topic,
			Verify: true,
			OpenAPK: func(string) publisher.APK {
				return apk
			},
		}
		m   = newManifest()
		out = newOutput(t, dozer.ModeDebug, apkName, "pdfeditor-1.0-arm64-v8a_armeabi-v7a-release.aab", "build.log")
	)
	defer bucket.Close()
	defer topic.Shutdown(ctx)
	defer sub.Shutdown(ctx)

	artifact, err := p.Publish(ctx, m, out)
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if artifact.File != apkName || artifact.ContentType != android.ContentTypeAPK {
		t.Error("unexpected artifact", artifact)
	}

	if artifact.Digest != digest.FromString(apkName) || artifact.Size != int64(len(apkName)) {
		t.Error("unexpected digest", artifact.Digest, artifact.Size)
	}

	if artifact.SHA256CertFingerprints != "AB:CD" || artifact.VersionCode != 10010 || !apk.closed {
		t.Error("expected the apk to be verified")
	}

	b, err := bucket.ReadAll(ctx, dozerblob.ArtifactKey("org.example.pdfeditor", "1.0", apkName))
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if string(b) != apkName {
		t.Error("unexpected contents", string(b))
	}

	metadata := &dozer.Artifact{}
	if err = dozerblob.ReadJSON(ctx, bucket, dozerblob.ArtifactMetadataKey("org.example.pdfeditor", "1.0", dozer.ModeDebug), metadata); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if metadata.Digest != artifact.Digest || metadata.BuildID != out.ID {
		t.Error("unexpected metadata", metadata)
	}

	msg, err := sub.Receive(ctx)
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
	msg.Ack()

	if msg.Metadata["packageId"] != "org.example.pdfeditor" || msg.Metadata["version"] != "1.0" {
		t.Error("unexpected message metadata", msg.Metadata)
	}

	notified := &dozer.Artifact{}
	if err = json.Unmarshal(msg.Body, notified); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if notified.Key != artifact.Key {
		t.Error("unexpected message body", string(msg.Body))
	}
}

func TestPublishRelease(t *testing.T) {
	var (
		ctx    = context.Background()
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{Bucket: bucket, Verify: true}
		out    = newOutput(t, dozer.ModeRelease, apkName, "pdfeditor-1.0-arm64-v8a_armeabi-v7a-release.aab")
	)
	defer bucket.Close()

	artifact, err := p.Publish(ctx, newManifest(), out)
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if artifact.File != "pdfeditor-1.0-arm64-v8a_armeabi-v7a-release.aab" || artifact.ContentType != android.ContentTypeAAB {
		t.Error("unexpected artifact", artifact)
	}
}

func TestPublishNoArtifact(t *testing.T) {
	var (
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{Bucket: bucket}
	)
	defer bucket.Close()

	_, err := p.Publish(context.Background(), newManifest(), newOutput(t, dozer.ModeDebug, "pdfeditor-0.9-arm64-v8a-debug.apk"))
	if err == nil {
		t.Error("expected an error")
		t.FailNow()
	}

	if stage := dozererr.StageOf(err); stage != dozererr.StagePublish {
		t.Error("expected publish stage, got", stage)
	}

	assertEmpty(t, bucket)
}

func TestPublishAmbiguousArtifact(t *testing.T) {
	var (
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{Bucket: bucket}
		out    = newOutput(t, dozer.ModeDebug, apkName, "pdfeditor-1.0-x86_64-debug.apk")
	)
	defer bucket.Close()

	if _, err := p.Publish(context.Background(), newManifest(), out); err == nil {
		t.Error("expected an error")
	}

	assertEmpty(t, bucket)
}

func TestPublishVerifyMismatch(t *testing.T) {
	var (
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{
			Bucket: bucket,
			Verify: true,
			OpenAPK: func(string) publisher.APK {
				return &fakeAPK{manifest: androidManifest("org.example.pdfeditor", "0.9")}
			},
		}
	)
	defer bucket.Close()

	if _, err := p.Publish(context.Background(), newManifest(), newOutput(t, dozer.ModeDebug, apkName)); err == nil {
		t.Error("expected an error")
	}

	assertEmpty(t, bucket)
}

func TestFindArtifactMissingDir(t *testing.T) {
	_, err := publisher.FindArtifact(newManifest(), filepath.Join(t.TempDir(), "bin"), dozer.ModeDebug)
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected not exist, got", err)
	}
}

func TestPublishVerifySDKMismatch(t *testing.T) {
	var (
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{
			Bucket: bucket,
			Verify: true,
			OpenAPK: func(string) publisher.APK {
				return &fakeAPK{
					manifest: androidManifest("org.example.pdfeditor", "1.0"),
					metadata: &apktool.Metadata{
						SDKInfo: &apktool.SDKInfo{MinSDKVersion: "24", TargetSDKVersion: "33"},
					},
				}
			},
		}
	)
	defer bucket.Close()

	_, err := p.Publish(context.Background(), newManifest(), newOutput(t, dozer.ModeDebug, apkName))
	if err == nil || !strings.Contains(err.Error(), "minSdkVersion 24") {
		t.Error("expected a minSdkVersion mismatch, got", err)
	}

	assertEmpty(t, bucket)
}

func TestPublishVerifyVersionFromMetadata(t *testing.T) {
	var (
		ctx    = context.Background()
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{
			Bucket: bucket,
			Verify: true,
			OpenAPK: func(string) publisher.APK {
				return &fakeAPK{
					manifest: `<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="org.example.pdfeditor"></manifest>`,
					metadata: &apktool.Metadata{
						SDKInfo:     &apktool.SDKInfo{MinSDKVersion: "21", TargetSDKVersion: "33"},
						VersionInfo: &apktool.VersionInfo{VersionCode: "10020", VersionName: "1.0"},
					},
				}
			},
		}
	)
	defer bucket.Close()

	artifact, err := p.Publish(ctx, newManifest(), newOutput(t, dozer.ModeDebug, apkName))
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if artifact.VersionCode != 10020 {
		t.Error("unexpected version code", artifact.VersionCode)
	}
}

func TestPublishNotifyFailure(t *testing.T) {
	var (
		ctx    = context.Background()
		bucket = memblob.OpenBucket(nil)
		topic  = mempubsub.NewTopic()
		p      = &publisher.Publisher{Bucket: bucket, Topic: topic}
	)
	defer bucket.Close()

	if err := topic.Shutdown(ctx); err != nil {
		t.Error(err)
		t.FailNow()
	}

	_, err := p.Publish(ctx, newManifest(), newOutput(t, dozer.ModeDebug, apkName))
	if err == nil {
		t.Error("expected an error")
		t.FailNow()
	}

	if stage := dozererr.StageOf(err); stage != dozererr.StagePublish {
		t.Error("expected publish stage, got", stage)
	}

	assertEmpty(t, bucket)
}

func TestPublishModesKeepSeparateMetadata(t *testing.T) {
	var (
		ctx    = context.Background()
		bucket = memblob.OpenBucket(nil)
		p      = &publisher.Publisher{Bucket: bucket}
		m      = newManifest()
	)
	defer bucket.Close()

	debug, err := p.Publish(ctx, m, newOutput(t, dozer.ModeDebug, apkName))
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	release, err := p.Publish(ctx, m, newOutput(t, dozer.ModeRelease, "pdfeditor-1.0-arm64-v8a_armeabi-v7a-release.aab"))
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	for mode, expected := range map[string]*dozer.Artifact{dozer.ModeDebug: debug, dozer.ModeRelease: release} {
		metadata := &dozer.Artifact{}
		if err = dozerblob.ReadJSON(ctx, bucket, dozerblob.ArtifactMetadataKey("org.example.pdfeditor", "1.0", mode), metadata); err != nil {
			t.Error(err)
			t.FailNow()
		}

		if metadata.File != expected.File {
			t.Error("unexpected", mode, "metadata", metadata.File)
		}
	}
}
