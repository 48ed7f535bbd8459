package android

import (
	"encoding/xml"
	"strconv"
)

const (
	AndroidManifestName = "AndroidManifest.xml"
	NamespaceAndroid    = "http://schemas.android.com/apk/res/android"
)

const (
	ContentTypeAPK = "application/vnd.android.package-archive"
	ContentTypeAAB = "application/octet-stream"
)

// Manifest is the part of an AndroidManifest.xml that
// a built package is checked against.
type Manifest struct {
	XMLName        xml.Name                 `xml:"manifest"`
	UsesSDK        ManifestUsesSDK          `xml:"uses-sdk"`
	UsesPermission []ManifestUsesPermission `xml:"uses-permission"`
	Attrs          []xml.Attr               `xml:",any,attr"`
}

func attr(attrs []xml.Attr, space, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local && (space == "" || a.Name.Space == space) {
			return a.Value
		}
	}

	return ""
}

func (m *Manifest) Package() string {
	return attr(m.Attrs, "", "package")
}

func (m *Manifest) VersionName() string {
	return attr(m.Attrs, NamespaceAndroid, "versionName")
}

func (m *Manifest) VersionCode() int {
	versionCode, _ := strconv.Atoi(attr(m.Attrs, NamespaceAndroid, "versionCode"))
	return versionCode
}

// UsesPermissions returns the name of each permission
// that the manifest requests.
func (m *Manifest) UsesPermissions() []string {
	permissions := []string{}

	for _, usesPermission := range m.UsesPermission {
		if name := attr(usesPermission.Attrs, NamespaceAndroid, "name"); name != "" {
			permissions = append(permissions, name)
		}
	}

	return permissions
}

type ManifestUsesSDK struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

func (u *ManifestUsesSDK) MinSDKVersion() int {
	minSDKVersion, _ := strconv.Atoi(attr(u.Attrs, NamespaceAndroid, "minSdkVersion"))
	return minSDKVersion
}

func (u *ManifestUsesSDK) TargetSDKVersion() int {
	targetSDKVersion, _ := strconv.Atoi(attr(u.Attrs, NamespaceAndroid, "targetSdkVersion"))
	return targetSDKVersion
}

type ManifestUsesPermission struct {
	Attrs []xml.Attr `xml:",any,attr"`
}
