package contentgraph

import (
	"encoding/json"
	"testing"
)

func mustEntry(t *testing.T, raw string) *Entry {
	t.Helper()
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	return &e
}

func TestAssetLinksFlat(t *testing.T) {
	e := mustEntry(t, `{
		"sys": {"id": "entry-1", "type": "Entry"},
		"fields": {
			"title": {"en-US": "hello"},
			"hero": {"en-US": {"sys": {"type": "Link", "linkType": "Asset", "id": "asset-1"}}}
		}
	}`)

	got := AssetLinks(e)
	if len(got) != 1 || got[0] != "asset-1" {
		t.Errorf("AssetLinks = %v, want [asset-1]", got)
	}
}

func TestAssetLinksNestedLists(t *testing.T) {
	e := mustEntry(t, `{
		"sys": {"id": "entry-2", "type": "Entry"},
		"fields": {
			"gallery": {
				"en-US": [
					{"sys": {"type": "Link", "linkType": "Asset", "id": "a1"}},
					[{"sys": {"type": "Link", "linkType": "Asset", "id": "a2"}}],
					"caption text",
					42
				],
				"de-DE": [
					{"sys": {"type": "Link", "linkType": "Asset", "id": "a1"}}
				]
			},
			"related": {"en-US": {"sys": {"type": "Link", "linkType": "Entry", "id": "other-entry"}}}
		}
	}`)

	got := AssetLinks(e)
	if len(got) != 2 {
		t.Fatalf("AssetLinks = %v, want 2 deduplicated asset ids", got)
	}
	seen := map[string]bool{}
	for _, id := range got {
		seen[id] = true
	}
	if !seen["a1"] || !seen["a2"] {
		t.Errorf("AssetLinks = %v, want a1 and a2", got)
	}

	entries := EntryLinks(e)
	if len(entries) != 1 || entries[0] != "other-entry" {
		t.Errorf("EntryLinks = %v, want [other-entry]", entries)
	}
}

func TestAssetLinksIgnoresLinkShapedScalars(t *testing.T) {
	// An object without a proper sys.type=Link block is a plain scalar.
	e := mustEntry(t, `{
		"sys": {"id": "entry-3", "type": "Entry"},
		"fields": {
			"meta": {"en-US": {"sys": {"id": "not-a-link"}}},
			"loc": {"en-US": {"lat": 1.5, "lon": 2.5}}
		}
	}`)

	if got := AssetLinks(e); len(got) != 0 {
		t.Errorf("AssetLinks = %v, want none", got)
	}
}

func TestValueRoundTrip(t *testing.T) {
	raw := `{"gallery":{"en-US":[{"sys":{"type":"Link","linkType":"Asset","id":"a1"}},"caption",7]}}`
	var fields map[string]map[string]Value
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Compare decoded forms: whitespace and key ordering may differ.
	var a, b any
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &b); err != nil {
		t.Fatal(err)
	}
	if !jsonEqual(a, b) {
		t.Errorf("round trip changed value:\n in: %s\nout: %s", raw, out)
	}
}

func jsonEqual(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}

func TestBuildReferenceIndex(t *testing.T) {
	e1 := mustEntry(t, `{
		"sys": {"id": "e1"},
		"fields": {"img": {"en-US": {"sys": {"type": "Link", "linkType": "Asset", "id": "a1"}}}}
	}`)
	e2 := mustEntry(t, `{
		"sys": {"id": "e2"},
		"fields": {
			"img": {"en-US": {"sys": {"type": "Link", "linkType": "Asset", "id": "a1"}}},
			"doc": {"en-US": {"sys": {"type": "Link", "linkType": "Asset", "id": "a2"}}}
		}
	}`)
	e3 := mustEntry(t, `{"sys": {"id": "e3"}, "fields": {"title": {"en-US": "no assets"}}}`)

	idx := BuildReferenceIndex([]Entry{*e1, *e2, *e3})

	if got := idx.AssetToEntries["a1"]; len(got) != 2 {
		t.Errorf("a1 referenced by %v, want e1 and e2", got)
	}
	if got := idx.AssetToEntries["a2"]; len(got) != 1 || got[0] != "e2" {
		t.Errorf("a2 referenced by %v, want [e2]", got)
	}
	if got := idx.EntryToAssets["e3"]; got != nil {
		t.Errorf("e3 references %v, want none", got)
	}
}

func TestIsDraft(t *testing.T) {
	tests := []struct {
		name string
		sys  Sys
		want bool
	}{
		{"never published", Sys{Version: 3}, true},
		{"published and untouched", Sys{Version: 4, PublishedVersion: 3}, false},
		{"edited once after publish", Sys{Version: 5, PublishedVersion: 4}, false},
		{"edited repeatedly after publish", Sys{Version: 9, PublishedVersion: 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDraft(tt.sys); got != tt.want {
				t.Errorf("IsDraft(%+v) = %v, want %v", tt.sys, got, tt.want)
			}
		})
	}
}
