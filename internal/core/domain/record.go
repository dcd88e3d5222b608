package domain

// Row is one vendor-normalised record keyed by column name.
type Row map[string]any

// TableSpec identifies a warehouse table together with its upsert contract:
// the conflict (natural key) columns and the columns rewritten on conflict.
type TableSpec struct {
	Name            string
	Columns         []string
	ConflictColumns []string
	UpdateColumns   []string
}

// ParentRef declares a foreign-key dependency of a child batch on a parent
// batch within the same record set. Rows whose Column value has no match in
// the parent batch's ParentColumn values are orphans.
type ParentRef struct {
	Column       string
	ParentTable  string
	ParentColumn string
}

// RecordBatch is a set of rows destined for one table.
type RecordBatch struct {
	Table     TableSpec
	Rows      []Row
	ParentRef *ParentRef
}

// RecordSet is an ordered collection of batches, parents before children.
// Upserts are issued in slice order to satisfy foreign keys.
type RecordSet []RecordBatch

// Merge appends the rows of other into the matching batches of the set,
// keeping table order stable. Batches for tables not yet present are
// appended at the end.
func (s RecordSet) Merge(other RecordSet) RecordSet {
	for _, b := range other {
		idx := -1
		for i := range s {
			if s[i].Table.Name == b.Table.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			s = append(s, b)
			continue
		}
		s[idx].Rows = append(s[idx].Rows, b.Rows...)
	}
	return s
}

// Len returns the total row count across all batches.
func (s RecordSet) Len() int {
	n := 0
	for i := range s {
		n += len(s[i].Rows)
	}
	return n
}

// FilterOrphans drops child rows whose ParentRef value does not appear in
// the referenced parent batch. Returns the number of rows dropped per table.
// An absent parent table drops every row of the child batch.
func (s RecordSet) FilterOrphans() map[string]int {
	dropped := make(map[string]int)

	for i := range s {
		ref := s[i].ParentRef
		if ref == nil {
			continue
		}

		keys := make(map[any]struct{})
		for j := range s {
			if s[j].Table.Name != ref.ParentTable {
				continue
			}
			for _, row := range s[j].Rows {
				if v, ok := row[ref.ParentColumn]; ok {
					keys[v] = struct{}{}
				}
			}
		}

		kept := s[i].Rows[:0]
		for _, row := range s[i].Rows {
			if _, ok := keys[row[ref.Column]]; ok {
				kept = append(kept, row)
				continue
			}
			dropped[s[i].Table.Name]++
		}
		s[i].Rows = kept
	}

	return dropped
}

// UpsertResult reports how many rows a batch upsert created versus modified.
// Inserted+Updated equals the row count unless rows were rejected.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Add accumulates another result.
func (r *UpsertResult) Add(other UpsertResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
}
