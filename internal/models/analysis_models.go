package models

import "time"

// UnknownPrediction is used when a successful response carries no prediction.
const UnknownPrediction = "Unknown"

// AnalysisRequest is built right before a submission and never stored.
type AnalysisRequest struct {
	Text  string
	Model string
}

// AnalysisResult is produced only by a successful response.
type AnalysisResult struct {
	Text       string `json:"text"`
	Prediction string `json:"prediction"`
	Model      string `json:"model"`
}

// InteractionState is the controller-owned view of one session.
type InteractionState struct {
	InputText       string          `json:"input_text"`
	SelectedModelID string          `json:"selected_model_id"`
	IsPending       bool            `json:"is_pending"`
	LastResult      *AnalysisResult `json:"last_result,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	Generation      uint64          `json:"generation"`
}

// AnalysisOutcome describes how a submission resolved. Exactly one of Result
// and Error is set.
type AnalysisOutcome struct {
	RequestID  string          `json:"request_id"`
	Text       string          `json:"text"`
	Model      string          `json:"model"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Generation uint64          `json:"generation"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
	ResolvedAt time.Time       `json:"resolved_at"`
}
