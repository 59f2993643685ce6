package anthropic

// CachedSystem returns a single system block with a cache breakpoint. The
// classifier sends the same instructions with every chunk, so later chunks
// read the prompt from cache.
func CachedSystem(text string, ttl string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: ttl}}}
}
