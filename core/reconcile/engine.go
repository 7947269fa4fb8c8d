package reconcile

// Diff computes the change-list turning current into source.
// Duplicate identifiers within a view keep the last occurrence. Inserts and updates
// follow source order, deletes follow current order.
func Diff[M Identifiable](source, current []M, equal EqualFunc[M]) []Change[M] {
	if equal == nil {
		equal = Equal[M]
	}

	currentIndex := buildIndex(current)
	sourceIndex := buildIndex(source)

	changes := make([]Change[M], 0)
	emitted := make(map[string]struct{}, len(sourceIndex))

	for _, item := range source {
		id := item.Identifier()
		if _, done := emitted[id]; done {
			continue
		}
		emitted[id] = struct{}{}

		fresh := sourceIndex[id]
		cached, exists := currentIndex[id]
		switch {
		case !exists:
			changes = append(changes, Inserted(fresh))
		case !equal(fresh, cached):
			changes = append(changes, Updated(fresh))
		}
	}

	for _, item := range current {
		id := item.Identifier()
		if _, done := emitted[id]; done {
			continue
		}
		emitted[id] = struct{}{}
		if _, exists := sourceIndex[id]; !exists {
			changes = append(changes, Deleted[M](id))
		}
	}

	return changes
}

// DiffOne computes the change for a single value under target. A nil source means
// the source has no value; a nil current means nothing is cached.
func DiffOne[M Identifiable](target string, source, current *M, equal EqualFunc[M]) *Change[M] {
	if equal == nil {
		equal = Equal[M]
	}

	switch {
	case source == nil && current == nil:
		return nil
	case source == nil:
		c := Deleted[M](target)
		return &c
	case current == nil:
		c := Change[M]{Kind: Insert, ID: target, Item: *source}
		return &c
	case !equal(*source, *current):
		c := Change[M]{Kind: Update, ID: target, Item: *source}
		return &c
	default:
		return nil
	}
}

// buildIndex indexes items by identifier, keeping the last occurrence.
func buildIndex[M Identifiable](items []M) map[string]M {
	index := make(map[string]M, len(items))
	for _, item := range items {
		index[item.Identifier()] = item
	}
	return index
}
