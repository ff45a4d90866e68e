package stix

// RawRecord is one decoded STIX object: an untyped mapping of field name to
// value, exactly as it appeared in the bundle. Records are consumed by
// classification immediately after decode and are never mutated.
type RawRecord map[string]any

// ID returns the record's globally unique identifier, or "" if absent or
// not a string.
func (r RawRecord) ID() string {
	return r.StringField("id")
}

// Type returns the record's type tag, or "" if absent or not a string.
func (r RawRecord) Type() string {
	return r.StringField("type")
}

// StringField returns the named field as a string. Non-string values and
// missing fields both yield "".
func (r RawRecord) StringField(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// StringListField returns the named field as an ordered sequence of strings.
// Non-string entries are skipped; a missing or non-list field yields nil.
func (r RawRecord) StringListField(key string) []string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ObjectField returns the named field as a nested mapping, or nil if the
// field is absent or not a mapping.
func (r RawRecord) ObjectField(key string) map[string]any {
	v, ok := r[key]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// Properties returns a shallow copy of every field on the record.
// List-valued fields are copied as fresh slices so later graph mutations
// cannot alias the decoded bundle.
func (r RawRecord) Properties() map[string]any {
	props := make(map[string]any, len(r))
	for key, value := range r {
		switch v := value.(type) {
		case []any:
			props[key] = append([]any(nil), v...)
		case map[string]any:
			copied := make(map[string]any, len(v))
			for k, nested := range v {
				copied[k] = nested
			}
			props[key] = copied
		default:
			props[key] = value
		}
	}
	return props
}
