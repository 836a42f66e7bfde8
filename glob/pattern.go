package glob

import (
	"path/filepath"
	"strings"
)

// metacharacters is the set of characters that mark a path component as a
// wildcard rather than a literal segment.
const metacharacters = "*?[{"

// hasWildcards reports whether pattern contains any glob metacharacter.
func hasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, metacharacters)
}

// splitPattern decomposes pattern into a base directory and a relative
// glob: walk path components, find the first one containing a wildcard
// metacharacter, and draw the base/glob boundary there.
//
//	*.txt          -> (".", "*.txt")
//	cmd/**/*.go    -> ("cmd", "**/*.go")
//	/usr/lib/**/*.so -> ("/usr/lib", "**/*.so")
//	cmd/foo*.go    -> ("cmd", "foo*.go")
//	{cmd,internal}/**/*.go -> (".", "{cmd,internal}/**/*.go")
func splitPattern(pattern string) (baseDir, relGlob string) {
	if pattern == "" {
		return ".", ""
	}

	isAbsolute := strings.HasPrefix(pattern, "/")
	components := strings.Split(pattern, "/")

	idx := -1
	for i, c := range components {
		if hasWildcards(c) {
			idx = i
			break
		}
	}

	if idx == -1 {
		return ".", pattern
	}
	if idx == 0 {
		return ".", pattern
	}

	baseComponents := components[:idx]
	globComponents := components[idx:]
	relGlob = strings.Join(globComponents, "/")

	if isAbsolute {
		nonEmpty := make([]string, 0, len(baseComponents))
		for _, c := range baseComponents {
			if c != "" {
				nonEmpty = append(nonEmpty, c)
			}
		}
		if len(nonEmpty) == 0 {
			return "/", relGlob
		}
		return "/" + strings.Join(nonEmpty, "/"), relGlob
	}

	nonEmpty := make([]string, 0, len(baseComponents))
	for _, c := range baseComponents {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	baseDir = filepath.Join(nonEmpty...)
	if baseDir == "" {
		baseDir = "."
	}
	return baseDir, relGlob
}
