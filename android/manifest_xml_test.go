package android

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"slices"
	"testing"
)

var (
	//go:embed AndroidManifest.test.xml
	data []byte
)

func TestUnmarshalAndroidManifest(t *testing.T) {
	manifest := &Manifest{}
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(manifest); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if pkg := manifest.Package(); pkg != "org.example.pdfeditor" {
		t.Errorf("unexpected package %q", pkg)
	}

	if versionName := manifest.VersionName(); versionName != "1.0" {
		t.Errorf("unexpected versionName %q", versionName)
	}

	if versionCode := manifest.VersionCode(); versionCode != 10010 {
		t.Errorf("unexpected versionCode %d", versionCode)
	}

	if minSDKVersion := manifest.UsesSDK.MinSDKVersion(); minSDKVersion != 21 {
		t.Errorf("unexpected minSdkVersion %d", minSDKVersion)
	}

	if targetSDKVersion := manifest.UsesSDK.TargetSDKVersion(); targetSDKVersion != 33 {
		t.Errorf("unexpected targetSdkVersion %d", targetSDKVersion)
	}

	if permissions := manifest.UsesPermissions(); !slices.Equal(permissions, []string{
		"android.permission.READ_EXTERNAL_STORAGE",
		"android.permission.WRITE_EXTERNAL_STORAGE",
	}) {
		t.Errorf("unexpected permissions %v", permissions)
	}
}
