package vault

import (
	"fmt"
	"strings"
)

// checkKey rejects keys that could escape a vault root.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid vault key: %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid vault key: %q", key)
		}
	}
	return nil
}
