package cache

// ToDocument flattens a FixtureData into the generic nested-map shape
// the filter DSL evaluates over (§4.5: "a JSON document shaped like the
// Processor's per-fixture WebSocket message").
func ToDocument(fd *FixtureData) map[string]interface{} {
	bookmakers := make(map[string]interface{}, len(fd.Bookmakers))
	for label, bk := range fd.Bookmakers {
		bookmakers[label] = snapshotToMap(bk.Current)
	}
	return map[string]interface{}{
		"bookmakers": bookmakers,
	}
}

func snapshotToMap(s Snapshot) map[string]interface{} {
	m := map[string]interface{}{
		"x12_h": int64(s.X12H), "x12_x": int64(s.X12X), "x12_a": int64(s.X12A),
		"fair_x12_h": int64(s.FairX12H), "fair_x12_x": int64(s.FairX12X), "fair_x12_a": int64(s.FairX12A),
		"ah_lines": s.AHLines, "ou_lines": s.OULines,
		"ah_h": int32SliceToAny(s.AHH), "ah_a": int32SliceToAny(s.AHA),
		"fair_ah_h": int32SliceToAny(s.FairAHH), "fair_ah_a": int32SliceToAny(s.FairAHA),
		"ou_o": int32SliceToAny(s.OUO), "ou_u": int32SliceToAny(s.OUU),
		"fair_ou_o": int32SliceToAny(s.FairOUO), "fair_ou_u": int32SliceToAny(s.FairOUU),
		"timestamp": s.Timestamp,
		"start":     s.Start,
	}
	if s.IDs != nil {
		m["ids"] = s.IDs
	}
	if s.MaxStakes != nil {
		m["max_stakes"] = s.MaxStakes
	}
	m["latest_t"] = s.LatestT
	return m
}

// Envelope returns the (timestamp, start) pair for a fixture-level WS
// message: the upstream time of the most recently applied update and
// that same update's bookmaker-publish time (§4.9, §6).
func Envelope(fd *FixtureData) (timestamp, start int64) {
	for _, bk := range fd.Bookmakers {
		if bk.Current.Timestamp == fd.LastUpdate {
			return bk.Current.Timestamp, bk.Current.Start
		}
	}
	return fd.LastUpdate, 0
}

func int32SliceToAny(s []int32) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}
