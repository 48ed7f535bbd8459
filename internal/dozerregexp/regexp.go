package dozerregexp

import "regexp"

var (
	PackageName   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,63}$`)
	PackageDomain = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)*$`)
	Version       = regexp.MustCompile(`^[0-9]+\.[0-9]+(\.[0-9]+)?$`)
	Requirement   = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(==\s*([A-Za-z0-9][A-Za-z0-9.+_!-]*))?$`)
	Permission    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	Digest        = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

	APK      = regexp.MustCompile(`(?i)^[\w.-]+\.apk$`)
	AAB      = regexp.MustCompile(`(?i)^[\w.-]+\.aab$`)
	Artifact = regexp.MustCompile(`(?i)^[\w.-]+\.(apk|aab)$`)

	requirementSeparators = regexp.MustCompile(`[-_.]+`)
)
