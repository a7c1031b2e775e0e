package bulk

// FindDuplicateIdentifiers returns every identifier that appears on more than
// one of rows, in order of first appearance. Empty identifiers are ignored.
func FindDuplicateIdentifiers(rows []Row) []string {
	counts := make(map[string]int, len(rows))
	var order []string
	for _, r := range rows {
		if r.Identifier == "" {
			continue
		}
		if counts[r.Identifier] == 0 {
			order = append(order, r.Identifier)
		}
		counts[r.Identifier]++
	}

	var dups []string
	for _, id := range order {
		if counts[id] > 1 {
			dups = append(dups, id)
		}
	}
	return dups
}

// withoutIdentifiers drops every row whose identifier is in ids.
func withoutIdentifiers(rows []Row, ids []string) []Row {
	if len(ids) == 0 {
		return rows
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, dup := skip[r.Identifier]; dup {
			continue
		}
		out = append(out, r)
	}
	return out
}
