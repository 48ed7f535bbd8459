package android

import "slices"

// ABIs are the Android application binary interfaces
// that a package can be built for.
var ABIs = []string{
	"arm64-v8a",
	"armeabi-v7a",
	"x86",
	"x86_64",
}

func IsABI(abi string) bool {
	return slices.Contains(ABIs, abi)
}
