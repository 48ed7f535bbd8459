package apktool

import (
	"strings"
	"testing"
)

const apktoolYML = `version: 2.9.3
apkFileName: pdfeditor-1.0-arm64-v8a_armeabi-v7a-debug.apk
isFrameworkApk: false
usesFramework:
  ids:
  - 1
  tag: null
sdkInfo:
  minSdkVersion: '21'
  targetSdkVersion: '33'
packageInfo:
  forcedPackageId: '127'
  renameManifestPackage: null
versionInfo:
  versionCode: '10010'
  versionName: '1.0'
resourcesAreCompressed: false
sharedLibrary: false
sparseResources: false
doNotCompress:
- resources.arsc
- png
`

func TestDecodeMetadata(t *testing.T) {
	metadata, err := DecodeMetadata(strings.NewReader(apktoolYML))
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if metadata.VersionInfo == nil {
		t.Error("expected versionInfo")
		t.FailNow()
	}

	if metadata.VersionInfo.VersionName != "1.0" {
		t.Errorf("unexpected versionName %q", metadata.VersionInfo.VersionName)
	}

	if metadata.VersionInfo.Code() != 10010 {
		t.Errorf("unexpected versionCode %d", metadata.VersionInfo.Code())
	}

	if metadata.SDKInfo == nil || metadata.SDKInfo.MinSDK() != 21 || metadata.SDKInfo.TargetSDK() != 33 {
		t.Errorf("unexpected sdkInfo %v", metadata.SDKInfo)
	}
}
