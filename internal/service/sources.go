package service

import (
	"sort"

	"landmarks/internal/domain"
)

// DefaultMaxSources applies when a request does not set max_sources.
const DefaultMaxSources = 5

// PrepareSources orders passages by descending relevance (stable for ties) and
// keeps the first maxSources with distinct source ids.
func PrepareSources(passages []domain.SourcePassage, maxSources int) []domain.SourceDocument {
	sorted := make([]domain.SourcePassage, len(passages))
	copy(sorted, passages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})

	sources := []domain.SourceDocument{}
	seen := map[string]struct{}{}
	for _, p := range sorted {
		if len(sources) >= maxSources {
			break
		}
		if _, dup := seen[p.SourceID]; dup {
			continue
		}
		seen[p.SourceID] = struct{}{}

		meta := make(map[string]any, len(p.Metadata)+1)
		meta["landmark_id"] = nilIfEmpty(p.LandmarkID)
		for k, v := range p.Metadata {
			meta[k] = v
		}
		sources = append(sources, domain.SourceDocument{
			SourceID:       p.SourceID,
			SourceType:     "pdf",
			Title:          p.SourceTitle,
			Content:        p.Text,
			Page:           p.PageNumber,
			RelevanceScore: p.RelevanceScore,
			Metadata:       meta,
		})
	}
	return sources
}

// toImages converts archive photos to response images, skipping photos without a url.
func toImages(photos []domain.LandmarkPhoto) []domain.LandmarkImage {
	images := make([]domain.LandmarkImage, 0, len(photos))
	for _, p := range photos {
		if p.URL == "" {
			continue
		}
		images = append(images, domain.LandmarkImage{
			URL:          p.URL,
			Caption:      p.Description,
			Year:         p.Year,
			Source:       p.Source,
			IsHistorical: p.IsHistorical,
		})
	}
	return images
}

func sourceMaps(sources []domain.SourceDocument) []map[string]any {
	out := make([]map[string]any, len(sources))
	for i, s := range sources {
		out[i] = s.AsMap()
	}
	return out
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
