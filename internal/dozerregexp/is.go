package dozerregexp

import "strings"

func IsPackageName(name string) bool {
	return PackageName.MatchString(name)
}

func IsPackageDomain(domain string) bool {
	return PackageDomain.MatchString(domain)
}

func IsVersion(version string) bool {
	return Version.MatchString(version)
}

func IsRequirement(requirement string) bool {
	return Requirement.MatchString(requirement)
}

func IsPermission(permission string) bool {
	return Permission.MatchString(permission)
}

func IsDigest(digest string) bool {
	return Digest.MatchString(digest)
}

func IsAPK(name string) bool {
	return APK.MatchString(name)
}

func IsAAB(name string) bool {
	return AAB.MatchString(name)
}

func IsArtifact(name string) bool {
	return Artifact.MatchString(name)
}

// NormalizeRequirementName folds a Python distribution name
// as described by PEP 503 so that "PyMuPDF", "pymupdf" and
// "py_mu.pdf" style spellings compare equal.
func NormalizeRequirementName(name string) string {
	return strings.ToLower(requirementSeparators.ReplaceAllString(name, "-"))
}
