package validator

import "github.com/huanlingzx/gemini-key/internal/model"

// Chunk splits keys into consecutive groups of at most size keys.
func Chunk(keys []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	chunks := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}

// Merge folds a batch into prev. Entries of prev whose keyString appears in
// batch are dropped, and the batch is appended after the remaining ones.
func Merge(prev, batch []model.Result) []model.Result {
	incoming := make(map[string]struct{}, len(batch))
	for _, r := range batch {
		incoming[r.KeyString] = struct{}{}
	}
	merged := make([]model.Result, 0, len(prev)+len(batch))
	for _, r := range prev {
		if _, replaced := incoming[r.KeyString]; !replaced {
			merged = append(merged, r)
		}
	}
	return append(merged, batch...)
}
