package filepathparser

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/azure/arm-template-backup/types"
)

func ParsePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		dirname, _ := os.UserHomeDir()
		path = filepath.Join(dirname, path[2:])
	}

	return filepath.Abs(path)
}

// JoinSegments joins root with names that must each stay a single directory
// level, such as environment labels and resource group names.
func JoinSegments(root string, segments ...string) (string, error) {
	parts := []string{root}
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) || strings.ContainsRune(segment, 0) {
			return "", fmt.Errorf("%w: %q", types.ErrUnsafeName, segment)
		}
		parts = append(parts, segment)
	}
	return filepath.Join(parts...), nil
}

// SanitizeSegment maps a name that JoinSegments rejects onto a safe segment.
// Rewritten names carry a hash of the original so that distinct names keep
// distinct segments. Safe names are returned unchanged.
func SanitizeSegment(segment string) string {
	if _, err := JoinSegments("", segment); err == nil {
		return segment
	}

	sanitized := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, segment)
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = strings.Repeat("_", len(sanitized)+1)
	}

	hash := fnv.New32a()
	hash.Write([]byte(segment))
	return fmt.Sprintf("%s-%08x", sanitized, hash.Sum32())
}
