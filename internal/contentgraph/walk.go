package contentgraph

// WalkLinks visits every link in the value tree in field order, descending
// into nested lists. Locale fan-out is the caller's concern; this walks a
// single locale's value.
func WalkLinks(v Value, visit func(Link)) {
	switch v.Kind {
	case KindLinkValue:
		visit(*v.Link)
	case KindListValue:
		for _, item := range v.List {
			WalkLinks(item, visit)
		}
	}
}

// AssetLinks returns the ids of every asset the entry references, in
// field-traversal order, deduplicated.
func AssetLinks(e *Entry) []string {
	return linksOfKind(e, KindAsset)
}

// EntryLinks returns the ids of every entry the entry references,
// deduplicated.
func EntryLinks(e *Entry) []string {
	return linksOfKind(e, KindEntry)
}

func linksOfKind(e *Entry, linkType string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, locales := range e.Fields {
		for _, value := range locales {
			WalkLinks(value, func(l Link) {
				if l.Sys.LinkType != linkType || seen[l.Sys.ID] {
					return
				}
				seen[l.Sys.ID] = true
				ids = append(ids, l.Sys.ID)
			})
		}
	}
	return ids
}

// ReferenceIndex relates assets to the entries that reference them and
// entries to the assets they reference. It is rebuilt from the export on
// every run, never persisted.
type ReferenceIndex struct {
	AssetToEntries map[string][]string
	EntryToAssets  map[string][]string
}

// BuildReferenceIndex scans every entry's field tree once and records both
// directions of the asset-entry relationship.
func BuildReferenceIndex(entries []Entry) *ReferenceIndex {
	idx := &ReferenceIndex{
		AssetToEntries: make(map[string][]string),
		EntryToAssets:  make(map[string][]string),
	}
	for i := range entries {
		entryID := entries[i].Sys.ID
		for _, assetID := range AssetLinks(&entries[i]) {
			idx.AssetToEntries[assetID] = append(idx.AssetToEntries[assetID], entryID)
			idx.EntryToAssets[entryID] = append(idx.EntryToAssets[entryID], assetID)
		}
	}
	return idx
}
