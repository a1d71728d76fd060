package classifier

import (
	"sync"
	"time"
)

// Entry is one document's identity in the duplicate index.
type Entry struct {
	DocumentID  string
	Fingerprint string
	Text        string
	PublishedAt time.Time
}

type indexEntry struct {
	documentID  string
	fingerprint string
	normalized  string
	publishedAt time.Time
}

// Index is the duplicate-fingerprint store shared by concurrent classification
// calls. It is created at startup (hydrated from the document store) and torn
// down at shutdown; check-and-insert is atomic under one mutex so two
// near-simultaneous duplicates can never both be admitted as first-seen.
type Index struct {
	similarity SimilarityFunc
	threshold  float64
	window     time.Duration

	mu      sync.Mutex
	byPrint map[string]*indexEntry
	recent  []*indexEntry // insertion-ordered, pruned by recency window
}

func NewIndex(similarity SimilarityFunc, threshold float64, window time.Duration) *Index {
	return &Index{
		similarity: similarity,
		threshold:  threshold,
		window:     window,
		byPrint:    make(map[string]*indexEntry),
	}
}

// CheckAndInsert reports whether the entry duplicates an earlier one within
// the recency window, by exact fingerprint or near-duplicate similarity.
// First-seen wins: non-duplicates are inserted in the same critical section.
func (ix *Index) CheckAndInsert(e Entry) (duplicateOf string, duplicate bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.prune(e.PublishedAt)

	if prior, ok := ix.byPrint[e.Fingerprint]; ok && ix.inWindow(prior, e.PublishedAt) {
		return prior.documentID, true
	}

	normalized := normalizeText(e.Text)
	for _, prior := range ix.recent {
		if !ix.inWindow(prior, e.PublishedAt) {
			continue
		}
		if ix.similarity(prior.normalized, normalized) >= ix.threshold {
			return prior.documentID, true
		}
	}

	ix.insert(e, normalized)
	return "", false
}

// Insert records an entry without duplicate checking. Used to hydrate the
// index from persisted documents at startup.
func (ix *Index) Insert(e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.insert(e, normalizeText(e.Text))
}

// Remove drops a document's entries so a later copy of the same content is
// admitted as first-seen. Used to roll back an admission when persisting the
// document fails.
func (ix *Index) Remove(documentID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.recent[:0]
	for _, entry := range ix.recent {
		if entry.documentID != documentID {
			kept = append(kept, entry)
			continue
		}
		if current, ok := ix.byPrint[entry.fingerprint]; ok && current == entry {
			delete(ix.byPrint, entry.fingerprint)
		}
	}
	ix.recent = kept
}

func (ix *Index) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.recent)
}

func (ix *Index) insert(e Entry, normalized string) {
	entry := &indexEntry{
		documentID:  e.DocumentID,
		fingerprint: e.Fingerprint,
		normalized:  normalized,
		publishedAt: e.PublishedAt,
	}
	ix.byPrint[e.Fingerprint] = entry
	ix.recent = append(ix.recent, entry)
}

func (ix *Index) inWindow(prior *indexEntry, at time.Time) bool {
	return at.Sub(prior.publishedAt) <= ix.window && !at.Before(prior.publishedAt.Add(-ix.window))
}

// prune drops entries that fell out of the recency window relative to the
// newest observed timestamp, keeping the scan bounded on long-running processes.
func (ix *Index) prune(now time.Time) {
	kept := ix.recent[:0]
	for _, entry := range ix.recent {
		if now.Sub(entry.publishedAt) <= ix.window {
			kept = append(kept, entry)
			continue
		}
		if current, ok := ix.byPrint[entry.fingerprint]; ok && current == entry {
			delete(ix.byPrint, entry.fingerprint)
		}
	}
	ix.recent = kept
}
