package document

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// LoadResult reports what a corpus load produced.
type LoadResult struct {
	Documents []Document
	Skipped   int
}

// LoadCorpus reads a corpus file and returns normalized documents.
// Supported layouts are a JSON array (.json) and one-record-per-line
// JSONL (.jsonl), optionally compressed with gzip (.gz) or zstd (.zst).
// Records failing normalization are skipped and counted, not fatal:
// a handful of broken rows must not take a shard down.
func LoadCorpus(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	name := path

	switch filepath.Ext(path) {
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd corpus: %w", err)
		}
		defer dec.Close()
		reader = dec
		name = strings.TrimSuffix(path, ".zst")
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip corpus: %w", err)
		}
		defer gz.Close()
		reader = gz
		name = strings.TrimSuffix(path, ".gz")
	}

	switch filepath.Ext(name) {
	case ".jsonl":
		return loadJSONL(reader)
	default:
		return loadJSON(reader)
	}
}

func loadJSON(r io.Reader) (*LoadResult, error) {
	var raw []rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	return normalizeAll(raw), nil
}

func loadJSONL(r io.Reader) (*LoadResult, error) {
	var raw []rawDocument

	scanner := bufio.NewScanner(r)
	// Descriptions can run long; the default 64KB line cap is not enough.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc rawDocument
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode corpus line: %w", err)
		}
		raw = append(raw, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	return normalizeAll(raw), nil
}

func normalizeAll(raw []rawDocument) *LoadResult {
	result := &LoadResult{
		Documents: make([]Document, 0, len(raw)),
	}
	for i := range raw {
		doc, err := raw[i].normalize()
		if err != nil {
			result.Skipped++
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	return result
}
