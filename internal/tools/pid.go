package tools

import (
	"os"
	"strconv"
)

// WritePidFile writes PID of current process. Empty path is a no-op.
func WritePidFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	return os.WriteFile(pidFile, pid, 0644)
}
