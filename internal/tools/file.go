package tools

import (
	"os"
)

// FileExists reports whether filename can be stat'ed. Errors other than
// not-exist are treated as existing so callers surface them on open.
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil || !os.IsNotExist(err)
}
