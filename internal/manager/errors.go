package manager

import (
	"errors"
	"fmt"
	"strings"
)

// InstallURL is where users are sent when the tool is missing.
const InstallURL = "https://scoop.sh/"

const unknownDetail = "unknown error"

// CommandError is a command that could not start or exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error // set when the command never ran to an exit status
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: exit status %d: %s", strings.Join(e.Args, " "), e.ExitCode, e.Detail())
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Detail is the text worth showing a user: stderr, else stdout, else a
// placeholder.
func (e *CommandError) Detail() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		return s
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return unknownDetail
}

// detailOf extracts the user-facing text from any error a Runner returns.
func detailOf(err error) string {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return cerr.Detail()
	}
	if err == nil {
		return unknownDetail
	}
	return err.Error()
}

// ValidationError is a search term that is too short to send to the tool.
type ValidationError struct {
	Term string
	Min  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("search term %q is too short: enter at least %d characters", e.Term, e.Min)
}

// ToolUnavailableError means the version probe failed.
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("%s is not available (%s); install it first: %s", e.Tool, detailOf(e.Err), InstallURL)
}

func (e *ToolUnavailableError) Unwrap() error {
	return e.Err
}

// SearchError is a search command that failed.
type SearchError struct {
	Term   string
	Detail string
	Err    error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search for %q failed: %s", e.Term, e.Detail)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// SearchEmptyError is a search that produced no package names.
type SearchEmptyError struct {
	Term string
}

func (e *SearchEmptyError) Error() string {
	return fmt.Sprintf("no results for %q", e.Term)
}

// BucketError is a bucket that could not be registered. Listing is set when
// the registered set itself could not be read; Bucket is then the bucket
// being checked, or empty for the default-bucket pass.
type BucketError struct {
	Bucket  string
	Listing bool
	Detail  string
	Err     error
}

func (e *BucketError) Error() string {
	switch {
	case e.Listing && e.Bucket == "":
		return fmt.Sprintf("registered buckets could not be listed: %s", e.Detail)
	case e.Listing:
		return fmt.Sprintf("bucket %q could not be checked: registered buckets could not be listed: %s", e.Bucket, e.Detail)
	}
	return fmt.Sprintf("bucket %q could not be added: %s", e.Bucket, e.Detail)
}

func (e *BucketError) Unwrap() error {
	return e.Err
}

// Op names a per-package lifecycle operation.
type Op string

const (
	OpInstall   Op = "install"
	OpUninstall Op = "uninstall"
)

// PackageError is an install or uninstall of one package that failed.
type PackageError struct {
	Op      Op
	Package string
	Detail  string
	Err     error
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Op, e.Package, e.Detail)
}

func (e *PackageError) Unwrap() error {
	return e.Err
}

// ListError is a failed listing of installed packages.
type ListError struct {
	Detail string
	Err    error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("listing installed packages failed: %s", e.Detail)
}

func (e *ListError) Unwrap() error {
	return e.Err
}
