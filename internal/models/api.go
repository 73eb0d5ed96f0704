package models

// Wire shapes of the location API.

type PaginationMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type ListResponse struct {
	Success    bool             `json:"success"`
	Data       []LocationRecord `json:"data"`
	Pagination PaginationMeta   `json:"pagination"`
}

type RecordResponse struct {
	Success bool           `json:"success"`
	Data    LocationRecord `json:"data"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
