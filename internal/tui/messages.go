package tui

import "scoopbox/internal/progress"

type installedLoadedMsg struct {
	names []string
	err   error
}

type searchResultsMsg struct {
	term  string
	names []string
	err   error
}

type installResultMsg struct {
	pkgs []string
	err  error
}

type uninstallResultMsg struct {
	pkgs []string
	err  error
}

type progressMsg struct {
	event progress.Event
}

type cacheClearedMsg struct{}
