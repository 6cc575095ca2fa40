package record

// Collection is the ordered list of records shown on a screen, kept in the
// order the server returned them. It performs no sorting or indexing and is
// not safe for concurrent use; owners guard it.
type Collection struct {
	records []Record
}

// NewCollection seeds a collection with the given records.
func NewCollection(records []Record) *Collection {
	c := &Collection{}
	c.Reset(records)
	return c
}

// Reset replaces the entire contents.
func (c *Collection) Reset(records []Record) {
	c.records = make([]Record, 0, len(records))
	for _, rec := range records {
		c.records = append(c.records, rec.Clone())
	}
}

// Append adds a record at the end.
func (c *Collection) Append(rec Record) {
	c.records = append(c.records, rec.Clone())
}

// Replace swaps the first record whose identifier equals id. It reports
// whether a record was replaced.
func (c *Collection) Replace(id string, rec Record) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}
	c.records[idx] = rec.Clone()
	return true
}

// Remove drops every record whose identifier equals id.
func (c *Collection) Remove(id string) bool {
	if id == "" {
		return false
	}
	kept := c.records[:0]
	removed := false
	for _, rec := range c.records {
		if rec.ID() == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	c.records = kept
	return removed
}

// Find returns a copy of the record with the given identifier.
func (c *Collection) Find(id string) (Record, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	return c.records[idx].Clone(), true
}

// Len returns the number of records.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Records returns a deep copy of the contents in order.
func (c *Collection) Records() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Clone()
	}
	return out
}

func (c *Collection) indexOf(id string) int {
	if c == nil || id == "" {
		return -1
	}
	for i, rec := range c.records {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}
