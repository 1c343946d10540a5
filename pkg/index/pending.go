package index

import "sync"

// PendingSet tracks documents that have been dispatched but whose partial
// results have not yet been merged. It informs status reporting only; it
// does not gate correctness, and entries for lost tasks simply remain.
type PendingSet struct {
	mu   sync.Mutex
	docs map[string]struct{}
}

// NewPendingSet returns an empty pending set.
func NewPendingSet() *PendingSet {
	return &PendingSet{docs: make(map[string]struct{})}
}

// Add records docID as awaiting results.
func (p *PendingSet) Add(docID string) {
	p.mu.Lock()
	p.docs[docID] = struct{}{}
	p.mu.Unlock()
}

// Remove clears docID and reports whether it was present.
func (p *PendingSet) Remove(docID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.docs[docID]; !ok {
		return false
	}
	delete(p.docs, docID)
	return true
}

// Len returns the number of documents still awaiting results.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs)
}

// Clear empties the set. Used when the index is reloaded from a snapshot.
func (p *PendingSet) Clear() {
	p.mu.Lock()
	p.docs = make(map[string]struct{})
	p.mu.Unlock()
}
