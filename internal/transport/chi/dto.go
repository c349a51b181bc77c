package chi

import "github.com/savealife-cloud/lifeline/internal/domain"

type errorResponse struct {
	Error string `json:"error"`
}

type searchRequest struct {
	SearchText string `json:"search_text"`
}

type searchResultItem struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Count   int                `json:"count"`
	Query   string             `json:"query"`
	Summary *string            `json:"summary,omitempty"`
}

type askRequest struct {
	Question string        `json:"question"`
	Asset    *assetPayload `json:"asset,omitempty"`
}

type assetPayload struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Location string         `json:"location,omitempty"`
	Alerts   []alertPayload `json:"alerts,omitempty"`
}

type alertPayload struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type askResponse struct {
	Response string `json:"response"`
}

type guideRequest struct {
	Collection string            `json:"collection,omitempty"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Tags       map[string]string `json:"tags,omitempty"`
}

type guideResponse struct {
	ID string `json:"id"`
}

type guideBatchRequest struct {
	Collection string         `json:"collection,omitempty"`
	Guides     []guideRequest `json:"guides"`
}

type guideBatchResponse struct {
	Inserted int      `json:"inserted"`
	IDs      []string `json:"ids"`
}

type collectionStats struct {
	Documents      int  `json:"documents"`
	IndexExists    bool `json:"index_exists"`
	IndexQueryable bool `json:"index_queryable"`
}

type statsResponse struct {
	Collections map[string]collectionStats `json:"collections"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func answerToResponse(query string, a domain.Answer) searchResponse {
	items := make([]searchResultItem, len(a.Results))
	for i, r := range a.Results {
		items[i] = searchResultItem{
			ID:      r.ID,
			Title:   r.Title,
			Content: r.Content,
			Score:   r.Score,
		}
	}
	return searchResponse{
		Results: items,
		Count:   len(items),
		Query:   query,
		Summary: a.Summary,
	}
}

func assetFromRequest(p *assetPayload) *domain.Asset {
	if p == nil {
		return nil
	}
	alerts := make([]domain.Alert, len(p.Alerts))
	for i, a := range p.Alerts {
		alerts[i] = domain.Alert{Severity: a.Severity, Message: a.Message}
	}
	return &domain.Asset{
		ID:       p.ID,
		Name:     p.Name,
		Type:     p.Type,
		Status:   p.Status,
		Location: p.Location,
		Alerts:   alerts,
	}
}

func guideFromRequest(req guideRequest) domain.Guide {
	return domain.Guide{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	}
}
