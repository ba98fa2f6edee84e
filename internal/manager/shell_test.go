package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandLinePOSIX(t *testing.T) {
	assert.Equal(t, "scoop search vscode", POSIX.CommandLine([]string{"scoop", "search", "vscode"}))
	assert.Equal(t, `scoop search 'it'"'"'s; rm -rf /'`, POSIX.CommandLine([]string{"scoop", "search", "it's; rm -rf /"}))
	assert.Equal(t, "scoop search ''", POSIX.CommandLine([]string{"scoop", "search", ""}))
}

func TestCommandLinePowerShell(t *testing.T) {
	assert.Equal(t, "scoop install extras/vscode", PowerShell.CommandLine([]string{"scoop", "install", "extras/vscode"}))
	assert.Equal(t, "scoop search 'a;b'", PowerShell.CommandLine([]string{"scoop", "search", "a;b"}))
	assert.Equal(t, "scoop search 'it''s'", PowerShell.CommandLine([]string{"scoop", "search", "it's"}))
	assert.Equal(t, "scoop search 'a,b'", PowerShell.CommandLine([]string{"scoop", "search", "a,b"}))
	assert.Equal(t, `& 'C:\Users\me\scoop\shims\scoop.cmd' --version`,
		PowerShell.CommandLine([]string{`C:\Users\me\scoop\shims\scoop.cmd`, "--version"}))
}

func TestShellArgv(t *testing.T) {
	assert.Equal(t,
		[]string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", "scoop list"},
		PowerShell.Argv("scoop list"))
	assert.Equal(t, []string{"sh", "-c", "scoop list"}, POSIX.Argv("scoop list"))
}

func TestParseShell(t *testing.T) {
	s, err := ParseShell("PowerShell")
	assert.NoError(t, err)
	assert.Equal(t, PowerShell, s)

	s, err = ParseShell("sh")
	assert.NoError(t, err)
	assert.Equal(t, POSIX, s)

	_, err = ParseShell("fish")
	assert.Error(t, err)
}

func TestParseShellEmptyDetects(t *testing.T) {
	s, err := ParseShell("")
	assert.NoError(t, err)
	assert.Equal(t, DetectShell(), s)
}
