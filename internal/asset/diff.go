package asset

// Diff returns one ChangeRecord per requested asset present in after,
// in after's insertion order. Assets only present in before are dropped.
func Diff(ids []string, before, after *Snapshot) []ChangeRecord {
	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	var records []ChangeRecord
	for _, id := range after.IDs() {
		if _, ok := requested[id]; !ok {
			continue
		}
		md, _ := after.Get(id)
		rec := ChangeRecord{ID: id, After: md}
		if prev, ok := before.Get(id); ok {
			p := prev
			rec.Before = &p
		}
		records = append(records, rec)
	}
	return records
}
