package dozercache_test

import (
	"context"
	"testing"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozercache"
	"github.com/opencontainers/go-digest"
	"gocloud.dev/blob/memblob"
)

func newManifest() *dozer.Manifest {
	m := &dozer.Manifest{
		Title:         "PDF Editor",
		PackageName:   "pdfeditor",
		PackageDomain: "org.example",
		Version:       "1.0",
		Requirements: []dozer.Requirement{
			{Name: "python3"},
			{Name: "kivy", Version: "2.2.1"},
			{Name: "pymupdf"},
		},
	}
	m.SetDefaults()
	return m
}

var tools = []string{"buildozer", "cython==0.29.33"}

func TestKeysAreStable(t *testing.T) {
	var (
		a = newManifest()
		b = newManifest()
	)

	if dozercache.ToolchainKey(a, dozercache.DefaultCmdlineToolsRevision) != dozercache.ToolchainKey(b, dozercache.DefaultCmdlineToolsRevision) {
		t.Error("expected identical toolchain keys")
	}

	ak, err := dozercache.DependencyKey(a, tools, "python3")
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	bk, err := dozercache.DependencyKey(b, tools, "python3")
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if ak != bk {
		t.Error("expected identical dependency keys")
	}

	if err = ak.Validate(); err != nil {
		t.Error(err)
	}
}

func TestPinChangesOnlyDependencyKey(t *testing.T) {
	var (
		a = newManifest()
		b = newManifest()
	)
	b.Requirements[1].Version = "2.3.0"

	if dozercache.ToolchainKey(a, dozercache.DefaultCmdlineToolsRevision) != dozercache.ToolchainKey(b, dozercache.DefaultCmdlineToolsRevision) {
		t.Error("expected a requirement pin not to change the toolchain key")
	}

	ak, _ := dozercache.DependencyKey(a, tools, "python3")
	bk, _ := dozercache.DependencyKey(b, tools, "python3")
	if ak == bk {
		t.Error("expected a requirement pin to change the dependency key")
	}
}

func TestAPIChangesOnlyToolchainKey(t *testing.T) {
	var (
		a = newManifest()
		b = newManifest()
	)
	b.Android.API = 34

	if dozercache.ToolchainKey(a, dozercache.DefaultCmdlineToolsRevision) == dozercache.ToolchainKey(b, dozercache.DefaultCmdlineToolsRevision) {
		t.Error("expected the target API to change the toolchain key")
	}

	ak, _ := dozercache.DependencyKey(a, tools, "python3")
	bk, _ := dozercache.DependencyKey(b, tools, "python3")
	if ak != bk {
		t.Error("expected the target API not to change the dependency key")
	}
}

func TestDuplicateRequirementsShareDependencyKey(t *testing.T) {
	var (
		a = newManifest()
		b = newManifest()
	)
	b.Requirements = append(b.Requirements, dozer.Requirement{Name: "Kivy"})

	ak, _ := dozercache.DependencyKey(a, tools, "python3")
	bk, _ := dozercache.DependencyKey(b, tools, "python3")
	if ak != bk {
		t.Error("expected a duplicate requirement not to change the dependency key")
	}
}

func TestConflictingRequirementsHaveNoDependencyKey(t *testing.T) {
	m := newManifest()
	m.Requirements = append(m.Requirements, dozer.Requirement{Name: "kivy", Version: "2.3.0"})

	if _, err := dozercache.DependencyKey(m, tools, "python3"); err == nil {
		t.Error("expected an error")
	}
}

func TestStamp(t *testing.T) {
	var (
		ctx    = context.Background()
		bucket = memblob.OpenBucket(nil)
		key    = "toolchain/sha256/" + digest.FromString("stamp").Encoded() + ".json"
	)
	defer bucket.Close()

	stamp, err := dozercache.ReadStamp(ctx, bucket, key)
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if stamp != nil {
		t.Error("expected no stamp")
	}

	if err = dozercache.WriteStamp(ctx, bucket, key, &dozercache.Stamp{
		Key:        digest.FromString("stamp"),
		Components: []string{"platforms;android-33"},
	}); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if ok, err := dozercache.HasStamp(ctx, bucket, key); err != nil {
		t.Error(err)
	} else if !ok {
		t.Error("expected stamp to exist")
	}

	if stamp, err = dozercache.ReadStamp(ctx, bucket, key); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if stamp == nil || stamp.Key != digest.FromString("stamp") || stamp.Created.IsZero() {
		t.Error("unexpected stamp", stamp)
	}
}

func TestDirname(t *testing.T) {
	d := digest.FromString("venv")

	if dirname := dozercache.Dirname(d); dirname != d.Encoded()[:16] {
		t.Error("unexpected dirname", dirname)
	}
}
