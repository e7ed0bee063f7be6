package response

import (
	"encoding/json"
	"net/http"
)

// SuggestionsResponse reports a rejected request argument together with the
// values the caller could have used instead.
type SuggestionsResponse struct {
	Error       string   `json:"error"`
	Field       string   `json:"field"`
	Value       string   `json:"value"`
	Suggestions []string `json:"suggestions"`
}

func NewSuggestionsResponse(message, field, value string, suggestions []string) SuggestionsResponse {
	return SuggestionsResponse{
		Error:       message,
		Field:       field,
		Value:       value,
		Suggestions: suggestions,
	}
}

func RenderSuggestions(w http.ResponseWriter, statusCode int, resp SuggestionsResponse) {
	jsonData, err := json.Marshal(resp)
	if err != nil {
		RenderFatal(w, err)
		return
	}

	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(statusCode)
	_, _ = w.Write(jsonData)
}
