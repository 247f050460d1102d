package service

import "landmarks/internal/domain"

const maxRelatedLandmarks = 5

// ExtractLandmarkIDs returns each distinct landmark id in text in order of first appearance.
func ExtractLandmarkIDs(text string) []string {
	ids := []string{}
	seen := map[string]struct{}{}
	for _, id := range domain.LandmarkIDPattern.FindAllString(text, -1) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ExtractLandmarkNames always returns an empty slice. Names are only known
// from registry lookups; nothing is inferred from free text.
func ExtractLandmarkNames(string) []string {
	return []string{}
}

// relatedCandidates picks the ids whose names are resolved as related landmarks:
// the first five ids, minus the requested landmark.
func relatedCandidates(ids []string, primary string) []string {
	if len(ids) > maxRelatedLandmarks {
		ids = ids[:maxRelatedLandmarks]
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != primary {
			out = append(out, id)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
