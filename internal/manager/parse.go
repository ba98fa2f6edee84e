package manager

import (
	"bufio"
	"sort"
	"strings"
)

// Entry is one package line of search output. Bucket is empty when the line
// did not name one.
type Entry struct {
	Bucket string
	Name   string
}

// SearchResult is parsed search output.
type SearchResult struct {
	// Names is sorted and free of duplicates.
	Names []string
	// Buckets maps lowercase package to lowercase bucket, first seen wins.
	Buckets map[string]string
}

func eachLine(out string, fn func(line string)) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
}

func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// searchEntries extracts package lines, skipping result counts, separators
// and column headers.
func searchEntries(out string) []Entry {
	var entries []Entry
	eachLine(out, func(line string) {
		low := strings.ToLower(line)
		if strings.Contains(low, "result") || strings.HasPrefix(line, "-") || strings.HasPrefix(low, "name") {
			return
		}
		token := firstToken(line)
		var e Entry
		if bucket, name, ok := strings.Cut(token, "/"); ok {
			e = Entry{Bucket: bucket, Name: name}
		} else {
			e = Entry{Name: token}
		}
		if e.Name != "" {
			entries = append(entries, e)
		}
	})
	return entries
}

// ParseSearch turns search output into sorted unique names and the
// package→bucket mappings it mentions.
func ParseSearch(out string) SearchResult {
	res := SearchResult{Buckets: make(map[string]string)}
	seen := make(map[string]bool)
	for _, e := range searchEntries(out) {
		if e.Bucket != "" {
			key := strings.ToLower(e.Name)
			if _, ok := res.Buckets[key]; !ok {
				res.Buckets[key] = strings.ToLower(e.Bucket)
			}
		}
		if !seen[e.Name] {
			seen[e.Name] = true
			res.Names = append(res.Names, e.Name)
		}
	}
	sort.Strings(res.Names)
	return res
}

// ParseInstalled returns the first token of every package line of list
// output, in order.
func ParseInstalled(out string) []string {
	var names []string
	eachLine(out, func(line string) {
		low := strings.ToLower(line)
		if strings.HasPrefix(line, "-") || strings.Contains(low, "name") || strings.Contains(low, "installed") {
			return
		}
		if token := firstToken(line); token != "" {
			names = append(names, token)
		}
	})
	return names
}

// ParseBucketList returns the lowercase bucket names from bucket list
// output. Both a bare name per line and the tabular form are accepted.
func ParseBucketList(out string) []string {
	var names []string
	eachLine(out, func(line string) {
		if strings.HasPrefix(line, "-") {
			return
		}
		token := strings.ToLower(firstToken(line))
		if token == "" || token == "name" {
			return
		}
		names = append(names, token)
	})
	return names
}
