package logstore

import (
	"bufio"
	"fmt"
	"os"
)

// maxLineSize bounds a single record line. Comment bodies are capped at
// 20000 chars upstream; 4MB leaves generous headroom for score columns.
const maxLineSize = 4 * 1024 * 1024

// ReadRecords decodes every line of a JSONL log into T.
func ReadRecords[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var records []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec T
		if err := jsonCodec.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log %s: %w", path, err)
	}
	return records, nil
}

// ReadIDs collects the value of idKey from every line of a JSONL log.
// Used to build the resume set from a partially-written output log.
func ReadIDs(path, idKey string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	ids := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec map[string]any
		if err := jsonCodec.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		id, ok := rec[idKey].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("%s line %d: missing id key %q", path, lineNo, idKey)
		}
		ids[id] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log %s: %w", path, err)
	}
	return ids, nil
}
