package manager

import (
	"os/exec"
	"runtime"
)

// DetectShell picks the interpreter native to the running platform.
func DetectShell() Shell {
	if runtime.GOOS == "windows" {
		return PowerShell
	}
	return POSIX
}

// OnPath reports whether tool resolves to an executable. It is a cheap
// pre-check only; EnsureAvailable is what operations rely on.
func OnPath(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}
