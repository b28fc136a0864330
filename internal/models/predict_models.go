package models

import (
	"encoding/json"
	"errors"
)

// PredictRequest is the client side body of POST /predict.
type PredictRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// PredictResponse is the subset of the /predict response the client reads.
// Extra fields are ignored.
type PredictResponse struct {
	Text           string   `json:"text,omitempty"`
	Prediction     string   `json:"prediction,omitempty"`
	Model          string   `json:"model,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	ConfidenceText *string  `json:"confidence_text,omitempty"`
}

// UnmarshalJSON keeps only scalar values. A field of another JSON type, such
// as the list the service returns for batch text, is left unset instead of
// failing the whole response.
func (p *PredictResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		Text           json.RawMessage `json:"text"`
		Prediction     json.RawMessage `json:"prediction"`
		Model          json.RawMessage `json:"model"`
		Confidence     json.RawMessage `json:"confidence"`
		ConfidenceText json.RawMessage `json:"confidence_text"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*p = PredictResponse{
		Text:       rawString(wire.Text),
		Prediction: rawString(wire.Prediction),
		Model:      rawString(wire.Model),
	}
	var confidence float64
	if isValue(wire.Confidence) && json.Unmarshal(wire.Confidence, &confidence) == nil {
		p.Confidence = &confidence
	}
	if isValue(wire.ConfidenceText) {
		var text string
		if json.Unmarshal(wire.ConfidenceText, &text) == nil {
			p.ConfidenceText = &text
		}
	}
	return nil
}

func isValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// PredictionOrUnknown returns the prediction or UnknownPrediction when it is
// missing.
func (p PredictResponse) PredictionOrUnknown() string {
	if p.Prediction == "" {
		return UnknownPrediction
	}
	return p.Prediction
}

// TextInput accepts either a JSON string or a list of strings, matching what
// the prediction service accepts for "text".
type TextInput struct {
	Values []string
	IsList bool
}

func (t *TextInput) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		t.Values = []string{single}
		t.IsList = false
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("text must be a string or a list of strings")
	}
	t.Values = list
	t.IsList = true
	return nil
}

func (t TextInput) MarshalJSON() ([]byte, error) {
	if t.IsList {
		return json.Marshal(t.Values)
	}
	if len(t.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(t.Values[0])
}

// ServicePredictRequest is the body the prediction service accepts.
type ServicePredictRequest struct {
	Model string    `json:"model" binding:"required"`
	Text  TextInput `json:"text"`
}

// Prediction is one scored text on the service side.
type Prediction struct {
	Text           string  `json:"text"`
	Label          string  `json:"label"`
	Score          float64 `json:"score"`
	Confidence     float64 `json:"confidence"`
	ConfidenceText string  `json:"confidence_text"`
}

// ServicePredictResponse mirrors the shape of the request: scalar fields for a
// single text, list fields for a batch.
type ServicePredictResponse struct {
	Text           any    `json:"text"`
	Prediction     any    `json:"prediction"`
	Model          string `json:"model"`
	Confidence     any    `json:"confidence"`
	ConfidenceText any    `json:"confidence_text"`
}

// NewServicePredictResponse folds scored predictions into the response shape.
func NewServicePredictResponse(input TextInput, model string, preds []Prediction) ServicePredictResponse {
	if !input.IsList && len(preds) == 1 {
		p := preds[0]
		return ServicePredictResponse{
			Text:           p.Text,
			Prediction:     p.Label,
			Model:          model,
			Confidence:     p.Confidence,
			ConfidenceText: p.ConfidenceText,
		}
	}

	texts := make([]string, 0, len(preds))
	labels := make([]string, 0, len(preds))
	confidences := make([]float64, 0, len(preds))
	confidenceTexts := make([]string, 0, len(preds))
	for _, p := range preds {
		texts = append(texts, p.Text)
		labels = append(labels, p.Label)
		confidences = append(confidences, p.Confidence)
		confidenceTexts = append(confidenceTexts, p.ConfidenceText)
	}
	return ServicePredictResponse{
		Text:           texts,
		Prediction:     labels,
		Model:          model,
		Confidence:     confidences,
		ConfidenceText: confidenceTexts,
	}
}
