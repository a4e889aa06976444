package voice

// dedupPrefixLen is how much of the utterance participates in the dedup key.
const dedupPrefixLen = 64

// Deduper suppresses duplicate persistence of the same finalized utterance.
// Two classifier heuristics can coincidentally detect the same upstream text;
// the key set is scoped to one voice session and reset when a new one starts.
type Deduper struct {
	keys map[string]struct{}
}

// NewDeduper returns an empty session-scoped dedup set.
func NewDeduper() *Deduper {
	return &Deduper{keys: make(map[string]struct{})}
}

// Claim records the utterance ahead of its write attempt. It reports false
// when the same utterance was already claimed, meaning the write must be
// skipped.
func (d *Deduper) Claim(role, text string) bool {
	key := dedupKey(role, text)
	if _, ok := d.keys[key]; ok {
		return false
	}
	d.keys[key] = struct{}{}
	return true
}

// Release rolls the claim back after a failed write so the utterance can be
// retried. Successful writes keep their key.
func (d *Deduper) Release(role, text string) {
	delete(d.keys, dedupKey(role, text))
}

// Reset clears the set for a new session.
func (d *Deduper) Reset() {
	d.keys = make(map[string]struct{})
}

func dedupKey(role, text string) string {
	runes := []rune(text)
	if len(runes) > dedupPrefixLen {
		runes = runes[:dedupPrefixLen]
	}
	return role + ":" + string(runes)
}
