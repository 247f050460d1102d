package domain

import (
	"context"
	"regexp"
	"time"
)

// LandmarkIDPattern matches Landmarks Preservation Commission ids such as LP-00004.
var LandmarkIDPattern = regexp.MustCompile(`LP-\d{5}`)

var landmarkIDExact = regexp.MustCompile(`^LP-\d{5}$`)

// IsLandmarkID reports whether s is exactly one landmark id.
func IsLandmarkID(s string) bool { return landmarkIDExact.MatchString(s) }

// HistoryTurn is one query/response pair of a conversation.
type HistoryTurn struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// Turn carries everything appended to a conversation for a single exchange.
type Turn struct {
	Query         string
	Response      string
	LandmarkIDs   []string
	LandmarkNames []string
	SourcesUsed   []map[string]any
}

// MemoryEntry is an immutable record of one exchange within a conversation.
type MemoryEntry struct {
	ConversationID string           `json:"conversation_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Query          string           `json:"query"`
	Response       string           `json:"response"`
	LandmarkIDs    []string         `json:"landmark_ids"`
	LandmarkNames  []string         `json:"landmark_names"`
	SourcesUsed    []map[string]any `json:"sources_used"`
}

// Conversation is a TTL-bound sequence of entries sharing context.
type Conversation struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Entries       []MemoryEntry  `json:"entries"`
	LandmarkFocus string         `json:"landmark_focus,omitempty"`
	Metadata      map[string]any `json:"metadata"`
}

// Clone returns a deep copy so callers never share slices or maps with the store.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Entries = make([]MemoryEntry, len(c.Entries))
	for i, e := range c.Entries {
		e.LandmarkIDs = append([]string(nil), e.LandmarkIDs...)
		e.LandmarkNames = append([]string(nil), e.LandmarkNames...)
		sources := make([]map[string]any, len(e.SourcesUsed))
		for j, s := range e.SourcesUsed {
			sources[j] = cloneMap(s)
		}
		e.SourcesUsed = sources
		out.Entries[i] = e
	}
	out.Metadata = cloneMap(c.Metadata)
	return &out
}

// History projects the entries into query/response pairs.
func (c *Conversation) History() []HistoryTurn {
	turns := make([]HistoryTurn, 0, len(c.Entries))
	for _, e := range c.Entries {
		turns = append(turns, HistoryTurn{Query: e.Query, Response: e.Response})
	}
	return turns
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SourcePassage is a scored snippet returned by semantic search.
type SourcePassage struct {
	Text           string         `json:"text"`
	SourceID       string         `json:"source_id"`
	SourceTitle    string         `json:"source_title,omitempty"`
	PageNumber     *int           `json:"page_number,omitempty"`
	ChunkID        string         `json:"chunk_id,omitempty"`
	RelevanceScore float64        `json:"relevance_score"`
	LandmarkID     string         `json:"landmark_id,omitempty"`
	Metadata       map[string]any `json:"metadata"`
}

// LandmarkLocation holds the address and coordinates of a landmark.
type LandmarkLocation struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Borough      string  `json:"borough"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	Address      string  `json:"address"`
	Zipcode      string  `json:"zipcode,omitempty"`
}

// DesignationInfo describes when and how a landmark was designated.
type DesignationInfo struct {
	DesignationDate       time.Time `json:"designation_date"`
	DesignationType       string    `json:"designation_type"`
	DesignationReportURL  string    `json:"designation_report_url,omitempty"`
	NYCLNumber            string    `json:"nycl_number"`
	SignificanceStatement string    `json:"significance_statement,omitempty"`
}

// Architect is an architect or architectural firm.
type Architect struct {
	Name       string   `json:"name"`
	Info       string   `json:"info,omitempty"`
	Period     string   `json:"period,omitempty"`
	OtherWorks []string `json:"other_works,omitempty"`
}

// LandmarkPhoto is a photo record from the landmark photo archive.
type LandmarkPhoto struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Year         *int   `json:"year,omitempty"`
	Photographer string `json:"photographer,omitempty"`
	Source       string `json:"source,omitempty"`
	IsHistorical bool   `json:"is_historical"`
	IsPrimary    bool   `json:"is_primary"`
}

// LandmarkDetail is the canonical full record of a landmark.
type LandmarkDetail struct {
	LPCID              string            `json:"lpc_id"`
	Name               string            `json:"name"`
	AlternateNames     []string          `json:"alternate_names"`
	Description        string            `json:"description,omitempty"`
	Style              string            `json:"style,omitempty"`
	BuildingType       string            `json:"building_type,omitempty"`
	Architect          *Architect        `json:"architect,omitempty"`
	YearBuilt          *int              `json:"year_built,omitempty"`
	YearCompleted      *int              `json:"year_completed,omitempty"`
	Location           LandmarkLocation  `json:"location"`
	Designation        DesignationInfo   `json:"designation"`
	Photos             []LandmarkPhoto   `json:"photos"`
	HistoricDistrict   string            `json:"historic_district,omitempty"`
	IsHistoricDistrict bool              `json:"is_historic_district"`
	RelatedLandmarks   []RelatedLandmark `json:"related_landmarks"`
	Metadata           map[string]any    `json:"metadata"`
}

// LandmarkSummary is the listing form of a landmark used in search results.
type LandmarkSummary struct {
	LPCID           string    `json:"lpc_id"`
	Name            string    `json:"name"`
	Style           string    `json:"style,omitempty"`
	YearBuilt       *int      `json:"year_built,omitempty"`
	Borough         string    `json:"borough"`
	DesignationDate time.Time `json:"designation_date"`
	PrimaryPhotoURL string    `json:"primary_photo_url,omitempty"`
}

// LandmarkFilter narrows a landmark search. Empty fields are not sent.
type LandmarkFilter struct {
	Query        string
	Borough      string
	Neighborhood string
	Style        string
	Page         int
	PageSize     int
}

// LandmarkPage is one page of landmark search results.
type LandmarkPage struct {
	Results  []LandmarkSummary `json:"results"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Pages    int               `json:"pages"`
}

// ResearchContext is the per-request aggregate fed into prompt rendering. Never stored.
type ResearchContext struct {
	Query          string
	ConversationID string
	LandmarkID     string
	Passages       []SourcePassage
	Landmark       *LandmarkDetail
	History        []HistoryTurn
	Images         []LandmarkPhoto
}

// LandmarkImage is an image attached to a research response.
type LandmarkImage struct {
	URL          string `json:"url"`
	Caption      string `json:"caption,omitempty"`
	Year         *int   `json:"year,omitempty"`
	Source       string `json:"source,omitempty"`
	IsHistorical bool   `json:"is_historical"`
}

// SourceDocument is a cited source in a research response.
type SourceDocument struct {
	SourceID       string         `json:"source_id"`
	SourceType     string         `json:"source_type"`
	Title          string         `json:"title,omitempty"`
	Content        string         `json:"content"`
	Page           *int           `json:"page,omitempty"`
	RelevanceScore float64        `json:"relevance_score"`
	Metadata       map[string]any `json:"metadata"`
}

// AsMap renders the document in the opaque form persisted with a memory entry.
func (d SourceDocument) AsMap() map[string]any {
	m := map[string]any{
		"source_id":       d.SourceID,
		"source_type":     d.SourceType,
		"title":           d.Title,
		"content":         d.Content,
		"relevance_score": d.RelevanceScore,
		"metadata":        cloneMap(d.Metadata),
	}
	if d.Page != nil {
		m["page"] = *d.Page
	} else {
		m["page"] = nil
	}
	return m
}

// RelatedLandmark is an id/name pair.
type RelatedLandmark struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResearchRequest is an inbound report request.
type ResearchRequest struct {
	Query          string `json:"query" validate:"required,min=5,max=1000"`
	ConversationID string `json:"conversation_id,omitempty"`
	LandmarkID     string `json:"landmark_id,omitempty"`
	IncludeImages  *bool  `json:"include_images,omitempty"`
	MaxSources     *int   `json:"max_sources,omitempty" validate:"omitempty,min=1,max=20"`
}

// WantsImages reports whether images were requested; absent means yes.
func (r ResearchRequest) WantsImages() bool {
	return r.IncludeImages == nil || *r.IncludeImages
}

// ResearchResponse is the externally visible result of a report request.
type ResearchResponse struct {
	ConversationID   string            `json:"conversation_id"`
	Query            string            `json:"query"`
	Report           string            `json:"report"`
	Timestamp        time.Time         `json:"timestamp"`
	Images           []LandmarkImage   `json:"images"`
	Sources          []SourceDocument  `json:"sources"`
	LandmarkID       string            `json:"landmark_id,omitempty"`
	LandmarkName     string            `json:"landmark_name,omitempty"`
	RelatedLandmarks []RelatedLandmark `json:"related_landmarks"`
	SuggestedQueries []string          `json:"suggested_queries"`
}

// Prompt is a single text-generation call.
type Prompt struct {
	User        string
	System      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// MemoryStore holds conversations with TTL-based expiry.
type MemoryStore interface {
	CreateConversation(ctx context.Context) string
	AddEntry(ctx context.Context, conversationID string, turn Turn) bool
	GetConversation(ctx context.Context, conversationID string) (*Conversation, bool)
	GetConversationHistory(ctx context.Context, conversationID string) []HistoryTurn
	DeleteConversation(ctx context.Context, conversationID string) bool
}

// LandmarkGateway fetches landmark metadata from the external registry.
type LandmarkGateway interface {
	GetLandmarkByID(ctx context.Context, id string) (*LandmarkDetail, error)
	SearchLandmarks(ctx context.Context, filter LandmarkFilter) (*LandmarkPage, error)
	GetLandmarkPhotos(ctx context.Context, id string) ([]LandmarkPhoto, error)
	FindLandmarkByName(ctx context.Context, name string, exact bool) (*LandmarkSummary, error)
}

// PassageRetriever performs best-effort semantic search. It never fails; transport
// problems yield an empty result.
type PassageRetriever interface {
	Search(ctx context.Context, query string, topK int, landmarkID string) []SourcePassage
}

// TextGenerator produces text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
