package android

import "strings"

const permissionPrefix = "android.permission."

// PermissionName returns the fully-qualified name of permission.
// Bare names such as "INTERNET" are qualified with the "android.permission."
// prefix, and the "(name=...;maxSdkVersion=...)" form is reduced to its name.
func PermissionName(permission string) string {
	permission = strings.TrimSpace(permission)

	if strings.HasPrefix(permission, "(") && strings.HasSuffix(permission, ")") {
		for _, field := range strings.Split(strings.Trim(permission, "()"), ";") {
			if key, value, ok := strings.Cut(field, "="); ok && strings.TrimSpace(key) == "name" {
				permission = strings.TrimSpace(value)
				break
			}
		}
	}

	if permission != "" && !strings.Contains(permission, ".") {
		return permissionPrefix + permission
	}

	return permission
}
