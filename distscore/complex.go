package distscore

type DistRecord struct {
	DistKey
	DistVal
}

type DistKey struct {
	From Position
	To   Position
}

type DistVal struct {
	Distance  int
	Reachable bool
}

type complexScorer struct {
	orig DistScorer
	recs map[DistKey]DistVal
}

// NewComplexScorer overrides orig with known distances, typically measured
// path lengths. A record applies to the ordered (From, To) pair only; later
// records win.
func NewComplexScorer(orig DistScorer, records []DistRecord) DistScorer {
	recs := make(map[DistKey]DistVal)
	for _, rec := range records {
		recs[rec.DistKey] = rec.DistVal
	}
	return &complexScorer{
		orig: orig,
		recs: recs,
	}
}

func (s *complexScorer) Distance(from, to Position) (distance int, reachable bool) {
	key := DistKey{From: from, To: to}
	if val, ok := s.recs[key]; ok {
		return val.Distance, val.Reachable
	}
	return s.orig.Distance(from, to)
}
