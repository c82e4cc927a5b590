package contentgraph

import "encoding/json"

// ValueKind discriminates the shapes a field value can take.
type ValueKind int

const (
	// KindScalarValue is any terminal value: string, number, bool, null,
	// or an object that is not a link.
	KindScalarValue ValueKind = iota
	// KindLinkValue is a typed reference to an entry or asset.
	KindLinkValue
	// KindListValue is an ordered list of values.
	KindListValue
)

// Value is one node of an entry's field tree. Exactly one of Link, List,
// or Scalar is meaningful, selected by Kind. The raw JSON is retained so
// values round-trip through batch files byte-for-byte in meaning.
type Value struct {
	Kind   ValueKind
	Link   *Link
	List   []Value
	Scalar json.RawMessage
}

// UnmarshalJSON classifies the raw value as a link, a list, or a scalar.
// An object counts as a link only if its sys block has type "Link" and a
// non-empty target id; anything else stays an opaque scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := firstNonSpace(data)
	switch trimmed {
	case '[':
		var list []Value
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		v.Kind = KindListValue
		v.List = list
		return nil
	case '{':
		var link Link
		if err := json.Unmarshal(data, &link); err == nil &&
			link.Sys.Type == KindLink && link.Sys.ID != "" {
			v.Kind = KindLinkValue
			v.Link = &link
			return nil
		}
	}
	v.Kind = KindScalarValue
	v.Scalar = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the value back in its original shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindLinkValue:
		return json.Marshal(v.Link)
	case KindListValue:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		if v.Scalar == nil {
			return []byte("null"), nil
		}
		return v.Scalar, nil
	}
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
