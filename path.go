package sarc

import "strings"

// NormalizePath converts a user-provided path to fs.ValidPath format.
//
// Leading, trailing and repeated slashes are removed, and an empty result
// becomes ".". Elements such as "." and ".." are preserved; the fs methods
// of Archive reject them.
func NormalizePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}
