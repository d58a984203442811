package logscan

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/openclaw/quotatop/internal/usage"
)

// Records yields every decodable record from the JSONL files under dir, one
// file at a time. Malformed lines and unreadable files are skipped without
// aborting the scan; a missing or empty directory yields nothing. The
// sequence is single-pass, and each iteration re-reads from disk.
func Records(dir string) iter.Seq[usage.Record] {
	return func(yield func(usage.Record) bool) {
		for _, path := range findFiles(dir) {
			if !scanFile(path, yield) {
				return
			}
		}
	}
}

// findFiles collects all .jsonl files under dir. Walk errors, including a
// nonexistent root, mean "no logs here" rather than failure.
func findFiles(dir string) []string {
	var files []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// scanFile decodes path line by line, yielding each record that parses.
// Returns false once yield does.
func scanFile(path string, yield func(usage.Record) bool) bool {
	f, err := os.Open(path)
	if err != nil {
		// Unreadable file; sibling files must still be scanned.
		return true
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	// Increase buffer size for large lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec usage.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// Skip malformed lines
			continue
		}

		if !yield(rec) {
			return false
		}
	}
	return true
}
