package manager

import (
	"fmt"
	"strings"
)

// Shell is the command interpreter external commands are run through.
type Shell int

const (
	POSIX Shell = iota
	PowerShell
)

// ParseShell maps a configured shell name to a Shell. An empty name picks
// the platform default.
func ParseShell(s string) (Shell, error) {
	switch strings.ToLower(s) {
	case "":
		return DetectShell(), nil
	case "sh", "posix":
		return POSIX, nil
	case "powershell", "pwsh":
		return PowerShell, nil
	}
	return POSIX, fmt.Errorf("unknown shell %q", s)
}

func (s Shell) String() string {
	if s == PowerShell {
		return "powershell"
	}
	return "sh"
}

// Argv returns the interpreter invocation that runs line.
func (s Shell) Argv(line string) []string {
	if s == PowerShell {
		return []string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", line}
	}
	return []string{"sh", "-c", line}
}

// CommandLine joins args into one line for the shell, quoting anything that
// is not a plain word so package names and search terms stay single
// arguments.
func (s Shell) CommandLine(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = s.quote(a)
	}
	line := strings.Join(quoted, " ")
	// PowerShell treats a quoted first word as a string, not a command.
	if s == PowerShell && len(args) > 0 && quoted[0] != args[0] {
		line = "& " + line
	}
	return line
}

func (s Shell) quote(arg string) string {
	if arg != "" && isPlainWord(arg, s.plainPunct()) {
		return arg
	}
	if s == PowerShell {
		return "'" + strings.ReplaceAll(arg, "'", "''") + "'"
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// plainPunct lists punctuation the shell passes through literally.
func (s Shell) plainPunct() string {
	if s == PowerShell {
		return "-_./:+"
	}
	return "-_./:+=@,%"
}

func isPlainWord(s, punct string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(punct, r):
		default:
			return false
		}
	}
	return true
}
