package contentgraph

// IsDraft reports whether a resource has unpublished edits: either it was
// never published, or its version counter has advanced more than one step
// past the published version.
//
// The version>published+1 comparison is a heuristic. A resource published
// and then edited exactly once is NOT classified as draft even though it
// has pending changes; the remote service bumps version by one on publish
// itself, which this offset accounts for. Changing the comparison changes
// which resources cleanup tooling touches, so it stays as-is.
func IsDraft(sys Sys) bool {
	if sys.PublishedVersion == 0 {
		return true
	}
	return sys.Version > sys.PublishedVersion+1
}
