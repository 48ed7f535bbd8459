package dozercache

import (
	"io"
	"strconv"

	"github.com/frantjc/dozer"
	"github.com/opencontainers/go-digest"
)

// DefaultCmdlineToolsRevision is the revision of the Android
// command-line tools that a Toolchain is provisioned with.
const DefaultCmdlineToolsRevision = "11076708"

// keyWriter writes each field prefixed with its length so that
// no two different sequences of fields encode to the same bytes.
type keyWriter struct {
	digester digest.Digester
}

func newKeyWriter(kind string) *keyWriter {
	kw := &keyWriter{digester: digest.SHA256.Digester()}
	kw.field(kind)
	return kw
}

func (kw *keyWriter) field(s string) {
	_, _ = io.WriteString(kw.digester.Hash(), strconv.Itoa(len(s))+":"+s)
}

func (kw *keyWriter) list(ss []string) {
	kw.field(strconv.Itoa(len(ss)))
	for _, s := range ss {
		kw.field(s)
	}
}

func (kw *keyWriter) digest() digest.Digest {
	return kw.digester.Digest()
}

// ToolchainKey identifies the Android toolchain that m needs: the target
// API level, the NDK, the build-tools and any SDK or NDK path overrides.
// It does not depend on the application's requirements.
func ToolchainKey(m *dozer.Manifest, cmdlineToolsRevision string) digest.Digest {
	kw := newKeyWriter("toolchain")
	kw.field(strconv.Itoa(m.Android.API))
	kw.field(m.Android.NDK)
	kw.field(m.Android.BuildTools)
	kw.field(m.Android.SDKPath)
	kw.field(m.Android.NDKPath)
	kw.field(cmdlineToolsRevision)
	return kw.digest()
}

// DependencyKey identifies the Python environment that m needs: its
// de-duplicated requirements in order, the build-tool requirements
// and the interpreter that the environment is created with.
func DependencyKey(m *dozer.Manifest, tools []string, python string) (digest.Digest, error) {
	reqs, err := dozer.ResolveRequirements(m.Requirements)
	if err != nil {
		return "", err
	}

	kw := newKeyWriter("dependencies")
	kw.field(python)
	kw.list(tools)
	kw.field(strconv.Itoa(len(reqs)))
	for _, req := range reqs {
		kw.field(req.Key())
		kw.field(req.Version)
	}

	return kw.digest(), nil
}

// Dirname returns a short, filesystem-friendly name for key.
func Dirname(key digest.Digest) string {
	if encoded := key.Encoded(); len(encoded) > 16 {
		return encoded[:16]
	}

	return key.Encoded()
}
