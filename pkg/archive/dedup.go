package archive

// DedupStatus classifies the outcome of a duplicate check.
type DedupStatus int

const (
	// NoMatch means no equivalent item exists for the owner.
	NoMatch DedupStatus = iota
	// ActiveMatch means an equivalent active item exists.
	ActiveMatch
	// TrashedMatch means an equivalent item exists in the trash; the
	// caller should restore it rather than insert a new record.
	TrashedMatch
)

// DedupResult is the outcome of a duplicate check. Record is set for
// ActiveMatch and TrashedMatch.
type DedupResult struct {
	Status DedupStatus
	Record *ItemRecord
}

// Deduper decides whether an incoming item already exists for an owner.
// It only reads the store's lookup indices; the authoritative arbiter for
// concurrent inserts remains the uniqueness constraint inside Insert.
type Deduper struct {
	store *ArchiveStore
}

// NewDeduper creates a Deduper over the given store.
func NewDeduper(store *ArchiveStore) *Deduper {
	return &Deduper{store: store}
}

// Check runs the two-tier duplicate check, short-circuiting on the first
// match:
//
//  1. transport-identity lookup — a cheap early exit that avoids hashing
//     large payloads when the exact upload instance was seen before;
//  2. content-hash lookup — authoritative: identical bytes re-uploaded
//     through a different transport instance still collapse into the
//     existing record.
//
// Either key may be nil; its tier is skipped.
func (d *Deduper) Check(ownerID int64, transportIdentity, contentHash *string) (DedupResult, error) {
	if transportIdentity != nil {
		rec, err := d.store.FindByTransportIdentity(ownerID, *transportIdentity)
		if err != nil {
			return DedupResult{}, err
		}
		if rec != nil {
			return matchResult(rec), nil
		}
	}

	if contentHash != nil {
		rec, err := d.store.FindByContentHash(ownerID, *contentHash)
		if err != nil {
			return DedupResult{}, err
		}
		if rec != nil {
			return matchResult(rec), nil
		}
	}

	return DedupResult{Status: NoMatch}, nil
}

func matchResult(rec *ItemRecord) DedupResult {
	if rec.Trashed() {
		return DedupResult{Status: TrashedMatch, Record: rec}
	}
	return DedupResult{Status: ActiveMatch, Record: rec}
}
