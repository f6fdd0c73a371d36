package dto

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ShortageDetail faltante de un insumo (409 INSUFFICIENT_STOCK).
type ShortageDetail struct {
	Location  string `json:"location"`
	ItemID    string `json:"item_id"`
	Available string `json:"available"`
	Required  string `json:"required"`
}

// FieldError error de validación de un campo.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
