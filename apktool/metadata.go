package apktool

import (
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	MetadataName = "apktool.yml"
)

type UsesFramework struct {
	IDs []int `yaml:"ids"`
	Tag any   `yaml:"tag"`
}

type SDKInfo struct {
	MinSDKVersion    string `yaml:"minSdkVersion"`
	TargetSDKVersion string `yaml:"targetSdkVersion"`
}

func (s *SDKInfo) MinSDK() int {
	minSDKVersion, _ := strconv.Atoi(s.MinSDKVersion)
	return minSDKVersion
}

func (s *SDKInfo) TargetSDK() int {
	targetSDKVersion, _ := strconv.Atoi(s.TargetSDKVersion)
	return targetSDKVersion
}

type PackageInfo struct {
	ForcedPackageID       string `yaml:"forcedPackageId"`
	RenameManifestPackage any    `yaml:"renameManifestPackage"`
}

// VersionInfo is written by `apktool` with quoted values,
// so each field is kept as a string.
type VersionInfo struct {
	VersionCode string `yaml:"versionCode"`
	VersionName string `yaml:"versionName"`
}

func (v *VersionInfo) Code() int {
	versionCode, _ := strconv.Atoi(v.VersionCode)
	return versionCode
}

type Metadata struct {
	Version                string         `yaml:"version,omitempty"`
	APKFileName            string         `yaml:"apkFileName,omitempty"`
	IsFrameworkAPK         bool           `yaml:"isFrameworkApk,omitempty"`
	UsesFramework          *UsesFramework `yaml:"usesFramework,omitempty"`
	SDKInfo                *SDKInfo       `yaml:"sdkInfo,omitempty"`
	PackageInfo            *PackageInfo   `yaml:"packageInfo,omitempty"`
	VersionInfo            *VersionInfo   `yaml:"versionInfo,omitempty"`
	ResourcesAreCompressed bool           `yaml:"resourcesAreCompressed,omitempty"`
	SharedLibrary          bool           `yaml:"sharedLibrary,omitempty"`
	SparseResources        bool           `yaml:"sparseResources,omitempty"`
	UnknownFiles           map[string]int `yaml:"unknownFiles,omitempty"`
	DoNotCompress          []string       `yaml:"doNotCompress,omitempty"`
}

// DecodeMetadata reads the apktool.yml that `apktool decode` writes.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	metadata := &Metadata{}

	if err := yaml.NewDecoder(r).Decode(metadata); err != nil {
		return nil, err
	}

	return metadata, nil
}
