package reconcile

// Split partitions a change-list into the update set (inserts and updates, to be
// written) and the delete set (identifiers to remove), the shape a repository save
// expects.
func Split[M any](changes []Change[M]) (updates []M, deletes []string) {
	for _, c := range changes {
		switch c.Kind {
		case Insert, Update:
			updates = append(updates, c.Item)
		case Delete:
			deletes = append(deletes, c.ID)
		}
	}
	return updates, deletes
}

// Partition groups a change-list by kind, preserving the relative order of each group.
func Partition[M any](changes []Change[M]) (updates, deletes, inserts []Change[M]) {
	for _, c := range changes {
		switch c.Kind {
		case Update:
			updates = append(updates, c)
		case Delete:
			deletes = append(deletes, c)
		case Insert:
			inserts = append(inserts, c)
		}
	}
	return updates, deletes, inserts
}

// Summarize counts a change-list by kind.
func Summarize[M any](changes []Change[M]) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Kind {
		case Insert:
			s.Inserts++
		case Update:
			s.Updates++
		case Delete:
			s.Deletes++
		}
	}
	return s
}

// Apply returns current with changes applied. Updated items keep their position,
// inserted items are appended.
func Apply[M Identifiable](current []M, changes []Change[M]) []M {
	deleted := make(map[string]struct{})
	replaced := make(map[string]M)
	var appended []M
	for _, c := range changes {
		switch c.Kind {
		case Delete:
			deleted[c.ID] = struct{}{}
		case Update:
			replaced[c.ID] = c.Item
		case Insert:
			appended = append(appended, c.Item)
		}
	}

	out := make([]M, 0, len(current)+len(appended))
	for _, item := range current {
		id := item.Identifier()
		if _, gone := deleted[id]; gone {
			continue
		}
		if v, ok := replaced[id]; ok {
			item = v
		}
		out = append(out, item)
	}
	return append(out, appended...)
}

// Inserts converts items to a list of Insert changes, the shape of an initial snapshot.
func Inserts[M Identifiable](items []M) []Change[M] {
	changes := make([]Change[M], 0, len(items))
	for _, item := range items {
		changes = append(changes, Inserted(item))
	}
	return changes
}
