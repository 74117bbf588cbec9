package validation

// Entry pairs a field name with its validator.  Build one with Key.
type Entry struct {
	name  string
	field Field
}

// Key names a Field inside a Schema.
func Key(name string, f Field) Entry { return Entry{name: name, field: f} }

// Schema is an ordered, immutable mapping from field name to Field.  Order
// is declaration order and drives error and touched iteration.
type Schema struct {
	entries []Entry
	index   map[string]int
}

// Object builds a Schema.  A repeated name replaces the earlier Field but
// keeps its original position.
func Object(entries ...Entry) *Schema {
	s := &Schema{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if i, dup := s.index[e.name]; dup {
			s.entries[i] = e
			continue
		}
		s.index[e.name] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// Field returns the validator registered under name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.entries[i].field, true
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.name
	}
	return out
}

// Len reports the number of fields.
func (s *Schema) Len() int { return len(s.entries) }
