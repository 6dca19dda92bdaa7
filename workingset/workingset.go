package workingset

import "sync"

// WorkingSet is the in-process mirror of one tenant's record collections.
// It holds no validation and no persistence; mutations apply synchronously
// and are visible to the very next read in the same process.
type WorkingSet struct {
	lock        sync.RWMutex
	collections map[Collection][]Record
}

func newWorkingSet() *WorkingSet {
	ws := &WorkingSet{collections: make(map[Collection][]Record, len(Collections))}
	for _, c := range Collections {
		ws.collections[c] = nil
	}
	return ws
}

// Find returns the record with the given id, preserving insertion order
// semantics for ties (ids are unique per collection).
func (ws *WorkingSet) Find(c Collection, id string) (Record, bool) {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	for _, record := range ws.collections[c] {
		if record.ID == id {
			return record, true
		}
	}
	return Record{}, false
}

// List returns a copy of the collection in order.
func (ws *WorkingSet) List(c Collection) []Record {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	records := ws.collections[c]
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Append adds a record to the end of the collection.
func (ws *WorkingSet) Append(c Collection, record Record) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	ws.collections[c] = append(ws.collections[c], record)
}

// Replace swaps the record with the given id for the provided one. Returns
// false when no record matched.
func (ws *WorkingSet) Replace(c Collection, id string, record Record) bool {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	for i, existing := range ws.collections[c] {
		if existing.ID == id {
			ws.collections[c][i] = record
			return true
		}
	}
	return false
}

// Remove deletes the record with the given id. Returns false when no record
// matched.
func (ws *WorkingSet) Remove(c Collection, id string) bool {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	for i, existing := range ws.collections[c] {
		if existing.ID == id {
			ws.collections[c] = append(ws.collections[c][:i], ws.collections[c][i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the collection size.
func (ws *WorkingSet) Len(c Collection) int {
	ws.lock.RLock()
	defer ws.lock.RUnlock()
	return len(ws.collections[c])
}

// replaceAll swaps a collection wholesale. Only the hydrator does this; every
// other mutation is incremental, which is what makes the write-ordering
// invariant sufficient to prevent regression.
func (ws *WorkingSet) replaceAll(c Collection, records []Record) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	ws.collections[c] = records
}
