package logstore

import (
	"bufio"
	"fmt"
	"os"
)

// DedupStats summarizes one dedup pass.
type DedupStats struct {
	Total  int
	Unique int
	Dupes  int
}

// CountIDs returns total line count and distinct id count for a log. Used
// to decide whether a dedup pass is needed and to verify its result.
func CountIDs(path, idKey string) (total, unique int, err error) {
	ids, err := ReadIDs(path, idKey)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			total++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("scan log %s: %w", path, err)
	}
	return total, len(ids), nil
}

// DedupFile copies a log, dropping lines whose id was seen within the last
// window lines. Duplicates come from stream redelivery bursts, so they
// cluster; a window of a few hundred covers them without holding the whole
// log's ids. window 0 means unbounded. Lines are copied byte for byte.
func DedupFile(inPath, outPath, idKey string, window int) (DedupStats, error) {
	var stats DedupStats

	in, err := os.Open(inPath)
	if err != nil {
		return stats, fmt.Errorf("open log %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return stats, fmt.Errorf("output %s exists already", outPath)
		}
		return stats, fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	seen := newIDWindow(window)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineNo++

		var rec map[string]any
		if err := jsonCodec.Unmarshal(line, &rec); err != nil {
			return stats, fmt.Errorf("%s line %d: %w", inPath, lineNo, err)
		}
		id, ok := rec[idKey].(string)
		if !ok || id == "" {
			return stats, fmt.Errorf("%s line %d: missing id key %q", inPath, lineNo, idKey)
		}

		stats.Total++
		if seen.add(id) {
			stats.Dupes++
			continue
		}
		stats.Unique++
		if _, err := w.Write(line); err != nil {
			return stats, fmt.Errorf("write %s: %w", outPath, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return stats, fmt.Errorf("write %s: %w", outPath, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan log %s: %w", inPath, err)
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flush %s: %w", outPath, err)
	}
	return stats, nil
}

// idWindow is a sliding set of the last capacity ids; capacity 0 keeps
// everything.
type idWindow struct {
	capacity int
	ring     []string
	next     int
	seen     map[string]bool
}

func newIDWindow(capacity int) *idWindow {
	return &idWindow{capacity: capacity, seen: make(map[string]bool)}
}

// add records id and reports whether it was already in the window.
func (w *idWindow) add(id string) bool {
	if w.seen[id] {
		return true
	}
	if w.capacity > 0 {
		if len(w.ring) < w.capacity {
			w.ring = append(w.ring, id)
		} else {
			delete(w.seen, w.ring[w.next])
			w.ring[w.next] = id
			w.next = (w.next + 1) % w.capacity
		}
	}
	w.seen[id] = true
	return false
}
