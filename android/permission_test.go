package android

import "testing"

func TestPermissionName(t *testing.T) {
	for _, c := range [][2]string{
		{"INTERNET", "android.permission.INTERNET"},
		{"android.permission.READ_EXTERNAL_STORAGE", "android.permission.READ_EXTERNAL_STORAGE"},
		{"(name=android.permission.WRITE_EXTERNAL_STORAGE;maxSdkVersion=18)", "android.permission.WRITE_EXTERNAL_STORAGE"},
		{"(name=CAMERA)", "android.permission.CAMERA"},
		{"com.example.permission.FOO", "com.example.permission.FOO"},
	} {
		if actual := PermissionName(c[0]); actual != c[1] {
			t.Errorf("expected %q, got %q", c[1], actual)
		}
	}
}

func TestIsABI(t *testing.T) {
	if !IsABI("arm64-v8a") {
		t.Error("expected arm64-v8a to be an ABI")
	}

	if IsABI("arm64") {
		t.Error("expected arm64 not to be an ABI")
	}
}
