package metadata

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"landmarks/internal/domain"
	"landmarks/internal/restclient"
)

const (
	defaultPageSize = 10
	photoLimit      = 50
	nameSearchSize  = 5
)

// Client reads landmark records from the CoreDataStore metadata API.
type Client struct {
	rest   *restclient.Client
	logger *zap.Logger
}

// NewClient wraps a configured REST client.
func NewClient(rest *restclient.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{rest: rest, logger: logger.Named("metadata")}
}

// GetLandmarkByID returns the landmark, or nil when the registry has no record.
func (c *Client) GetLandmarkByID(ctx context.Context, id string) (*domain.LandmarkDetail, error) {
	var raw any
	err := c.rest.GetJSON(ctx, "/api/LPCReport/"+url.PathEscape(id), nil, &raw)
	if domain.IsType(err, domain.ErrorTypeNotFound) {
		c.logger.Debug("landmark not found", zap.String("landmark_id", id))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("landmark lookup failed", zap.String("landmark_id", id), zap.Error(err))
		return nil, err
	}
	if isEmpty(raw) {
		c.logger.Warn("no data found for landmark", zap.String("landmark_id", id))
		return nil, nil
	}
	detail, err := toDetail(raw)
	if err != nil {
		return nil, domain.NewDataError("landmark " + id).WithCause(err)
	}
	return detail, nil
}

// SearchLandmarks returns one page of matching landmarks. Records that cannot be
// converted are skipped.
func (c *Client) SearchLandmarks(ctx context.Context, filter domain.LandmarkFilter) (*domain.LandmarkPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(size))
	if filter.Query != "" {
		params.Set("SearchText", filter.Query)
	}
	if filter.Borough != "" {
		params.Set("Borough", filter.Borough)
	}
	if filter.Neighborhood != "" {
		params.Set("Neighborhood", filter.Neighborhood)
	}
	if filter.Style != "" {
		params.Set("ParentStyleList", filter.Style)
	}

	var raw any
	if err := c.rest.GetJSON(ctx, "/api/LPCReports", params, &raw); err != nil {
		c.logger.Error("landmark search failed", zap.Error(err))
		return nil, err
	}
	out := &domain.LandmarkPage{Results: []domain.LandmarkSummary{}, Page: page, PageSize: size}
	if raw == nil {
		return out, nil
	}
	items, err := results(raw)
	if err != nil {
		return nil, domain.NewDataError("landmark search").WithCause(err)
	}
	for _, item := range items {
		summary, err := toSummary(item)
		if err != nil {
			c.logger.Warn("skipping landmark record", zap.Error(err))
			continue
		}
		out.Results = append(out.Results, summary)
	}
	out.Total = total(raw)
	out.Pages = (out.Total + size - 1) / size
	return out, nil
}

// GetLandmarkPhotos returns archive photos for a landmark, skipping unusable records.
func (c *Client) GetLandmarkPhotos(ctx context.Context, id string) ([]domain.LandmarkPhoto, error) {
	params := url.Values{}
	params.Set("LpcId", id)
	params.Set("limit", strconv.Itoa(photoLimit))
	params.Set("page", "1")

	var raw any
	if err := c.rest.GetJSON(ctx, "/api/LpcPhotoArchive", params, &raw); err != nil {
		if domain.IsType(err, domain.ErrorTypeNotFound) {
			return []domain.LandmarkPhoto{}, nil
		}
		c.logger.Error("photo lookup failed", zap.String("landmark_id", id), zap.Error(err))
		return nil, err
	}
	photos := []domain.LandmarkPhoto{}
	if raw == nil {
		return photos, nil
	}
	items, err := results(raw)
	if err != nil {
		return nil, domain.NewDataError("photo archive " + id).WithCause(err)
	}
	for _, item := range items {
		photo, err := toPhoto(item)
		if err != nil {
			c.logger.Warn("skipping photo record", zap.String("landmark_id", id), zap.Error(err))
			continue
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

// FindLandmarkByName searches by name. With exact set only a case-insensitive
// equal name matches; otherwise the best fuzzy match wins, falling back to the
// first result. Returns nil when nothing matches.
func (c *Client) FindLandmarkByName(ctx context.Context, name string, exact bool) (*domain.LandmarkSummary, error) {
	page, err := c.SearchLandmarks(ctx, domain.LandmarkFilter{Query: name, Page: 1, PageSize: nameSearchSize})
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	if exact {
		for i := range page.Results {
			if strings.EqualFold(page.Results[i].Name, name) {
				return &page.Results[i], nil
			}
		}
		return nil, nil
	}
	names := make([]string, len(page.Results))
	for i, r := range page.Results {
		names[i] = r.Name
	}
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		return &page.Results[matches[0].Index], nil
	}
	return &page.Results[0], nil
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}
