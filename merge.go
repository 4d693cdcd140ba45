package completer

// MergeReplies combines two replies with a preference for primary.
//
// If either reply has no items the other is returned unchanged. Otherwise the
// result carries primary's range and items, followed by the items of
// secondary whose label does not appear in primary, in secondary's order.
// Both inputs are expected to be free of duplicate labels, so the result is
// too.
func MergeReplies(primary, secondary Reply) Reply {
	if len(primary.Items) == 0 {
		return secondary
	}
	if len(secondary.Items) == 0 {
		return primary
	}

	items := make([]Item, len(primary.Items), len(primary.Items)+len(secondary.Items))
	copy(items, primary.Items)

	seen := make(map[string]struct{}, len(primary.Items))
	for _, item := range primary.Items {
		seen[item.Label] = struct{}{}
	}

	for _, item := range secondary.Items {
		if _, ok := seen[item.Label]; !ok {
			items = append(items, item)
		}
	}

	merged := primary
	merged.Items = items

	return merged
}

// MergeAll folds replies left to right with MergeReplies. It returns the zero
// Reply when called with no replies.
func MergeAll(replies ...Reply) Reply {
	var merged Reply
	for i, r := range replies {
		if i == 0 {
			merged = r
			continue
		}
		merged = MergeReplies(merged, r)
	}

	return merged
}
