package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func MetaFromPage[T any](page *Page[T]) *Meta {
	if page == nil {
		return nil
	}

	return &Meta{
		Page:       page.CurrentPage,
		Limit:      page.PageSize,
		Total:      page.TotalItems,
		TotalPages: page.TotalPages,
	}
}
