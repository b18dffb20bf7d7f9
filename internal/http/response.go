package http

import (
	"encoding/json"
	"net/http"
)

// Client-facing error messages. Internal failure detail stays in the
// logs, never in the response body.
const (
	msgInvalidFields = "Missing or invalid required fields"
	msgSaveFailed    = "Failed to save donation"
	msgStatsFailed   = "Failed to load stats"
	msgMonthlyFailed = "Failed to load monthly data"
)

type createResponse struct {
	Success   bool   `json:"success"`
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

// statsResponse carries dollar amounts; cents are an internal unit.
type statsResponse struct {
	Success        bool    `json:"success"`
	TotalAmount    float64 `json:"totalAmount"`
	TotalDonations int     `json:"totalDonations"`
	TotalDonors    int     `json:"totalDonors"`
	MealsProvided  int64   `json:"mealsProvided"`
	DeerProcessed  int64   `json:"deerProcessed"`
}

type monthlyPoint struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type seriesResponse struct {
	Success bool           `json:"success"`
	Series  []monthlyPoint `json:"series"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Success: false, Message: message})
}
