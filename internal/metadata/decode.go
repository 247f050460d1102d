package metadata

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"landmarks/internal/domain"
)

// Registry payloads are loosely typed. Everything below maps them onto the
// canonical records; missing or malformed optional fields become zero values.

var errNotRecord = errors.New("payload is not an object")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func toDetail(raw any) (*domain.LandmarkDetail, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotRecord
	}
	id := landmarkID(m)
	d := &domain.LandmarkDetail{
		LPCID:          id,
		Name:           str(m, "name"),
		AlternateNames: []string{},
		Description:    str(m, "description"),
		Style:          str(m, "style", "architecturalStyle"),
		BuildingType:   str(m, "buildingType", "objectType"),
		YearBuilt:      year(m, "yearBuilt", "dateBuilt"),
		YearCompleted:  year(m, "yearCompleted"),
		Location: domain.LandmarkLocation{
			Latitude:     float(m, "latitude"),
			Longitude:    float(m, "longitude"),
			Borough:      str(m, "borough"),
			Neighborhood: str(m, "neighborhood"),
			Address:      str(m, "street", "address"),
			Zipcode:      str(m, "zipCode", "zipcode"),
		},
		Designation: domain.DesignationInfo{
			DesignationDate:      date(m, "dateDesignated", "designationDate"),
			DesignationType:      orDefault(str(m, "designationType"), "Individual Landmark"),
			DesignationReportURL: str(m, "designationReportUrl", "pdfReportUrl"),
			NYCLNumber:           orDefault(str(m, "nyclNumber"), id),
		},
		HistoricDistrict: str(m, "historicDistrict"),
		Photos:           []domain.LandmarkPhoto{},
		RelatedLandmarks: []domain.RelatedLandmark{},
		Metadata:         map[string]any{},
	}
	if name := str(m, "architect"); name != "" {
		d.Architect = &domain.Architect{Name: name}
	}
	d.IsHistoricDistrict = d.HistoricDistrict != "" && strings.EqualFold(d.BuildingType, "historic district")
	if url := str(m, "photoUrl"); url != "" {
		d.Photos = append(d.Photos, domain.LandmarkPhoto{URL: url, IsPrimary: true})
	}
	return d, nil
}

func toSummary(raw any) (domain.LandmarkSummary, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.LandmarkSummary{}, errNotRecord
	}
	return domain.LandmarkSummary{
		LPCID:           landmarkID(m),
		Name:            str(m, "name"),
		Style:           str(m, "style", "architecturalStyle"),
		YearBuilt:       year(m, "yearBuilt", "dateBuilt"),
		Borough:         str(m, "borough"),
		DesignationDate: date(m, "dateDesignated", "designationDate"),
		PrimaryPhotoURL: str(m, "photoUrl"),
	}, nil
}

func toPhoto(raw any) (domain.LandmarkPhoto, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.LandmarkPhoto{}, errNotRecord
	}
	url := str(m, "url", "photoUrl", "imageUrl")
	if url == "" {
		return domain.LandmarkPhoto{}, errors.New("photo has no url")
	}
	return domain.LandmarkPhoto{
		URL:          url,
		Title:        str(m, "title"),
		Description:  str(m, "description"),
		Year:         year(m, "year"),
		Photographer: str(m, "photographer"),
		Source:       str(m, "source"),
		IsHistorical: boolean(m, "is_historical", "isHistorical"),
		IsPrimary:    boolean(m, "is_primary", "isPrimary"),
	}, nil
}

func landmarkID(m map[string]any) string {
	return str(m, "objectId", "lpcNumber")
}

// str returns the first key holding a non-empty value, rendered as a string.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func float(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// year accepts a number, a bare year string or a date and returns its year.
func year(m map[string]any, keys ...string) *int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if v > 0 && v == math.Trunc(v) {
				y := int(v)
				return &y
			}
		case string:
			s := strings.TrimSpace(v)
			if len(s) >= 4 {
				if y, err := strconv.Atoi(s[:4]); err == nil && y > 0 {
					return &y
				}
			}
		}
	}
	return nil
}

func date(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func boolean(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch v := m[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// results pulls the "results" array out of a list payload.
func results(raw any) ([]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("list payload: %w", errNotRecord)
	}
	items, _ := m["results"].([]any)
	return items, nil
}

func total(raw any) int {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0
	}
	return int(float(m, "total"))
}
