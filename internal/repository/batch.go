package repository

// DefaultChunkSize bounds how many keys go into one IN / OR clause.
const DefaultChunkSize = 150

// InChunks calls fn with consecutive slices of keys no longer than size.
// It stops at the first error.
func InChunks[K any](keys []K, size int, fn func(chunk []K) error) error {
	if size <= 0 {
		size = DefaultChunkSize
	}
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		if err := fn(keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Unique returns keys without repeats, keeping first-seen order.
func Unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
