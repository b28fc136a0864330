package models

import "strings"

const (
	MODEL_LOGISTIC_REGRESSION = "logistic_regression"
	MODEL_NAIVE_BAYES         = "naive_bayes"
	MODEL_SVM                 = "svm"
	MODEL_RANDOM_FOREST       = "random_forest"
)

type ModelDescriptor struct {
	ID           string `json:"id"`
	DisplayLabel string `json:"display_label"`
	Type         string `json:"type"`
}

var modelCatalog = []ModelDescriptor{
	{ID: MODEL_LOGISTIC_REGRESSION, DisplayLabel: "Logistic Regression", Type: "traditional"},
	{ID: MODEL_NAIVE_BAYES, DisplayLabel: "Naive Bayes", Type: "traditional"},
	{ID: MODEL_SVM, DisplayLabel: "Support Vector Machine", Type: "traditional"},
	{ID: MODEL_RANDOM_FOREST, DisplayLabel: "Random Forest", Type: "traditional"},
}

// Models returns the closed set of model descriptors in display order.
func Models() []ModelDescriptor {
	return append([]ModelDescriptor(nil), modelCatalog...)
}

// ModelIDs returns the identifiers of Models, in the same order.
func ModelIDs() []string {
	ids := make([]string, 0, len(modelCatalog))
	for _, m := range modelCatalog {
		ids = append(ids, m.ID)
	}
	return ids
}

func LookupModel(id string) (ModelDescriptor, bool) {
	for _, m := range modelCatalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// IsValidModel is an exact, case sensitive membership check.
func IsValidModel(id string) bool {
	_, ok := LookupModel(id)
	return ok
}

// NormalizeModel lowercases and trims a model name the way the prediction
// service does before looking it up.
func NormalizeModel(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

type Example struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment"`
}

var exampleTexts = []Example{
	{Text: "This product is amazing! Works perfectly and exceeded my expectations.", Sentiment: "positive"},
	{Text: "Terrible service, very disappointed with the quality.", Sentiment: "negative"},
	{Text: "The movie was okay, nothing special but not bad.", Sentiment: "negative"},
	{Text: "Excellent restaurant! Food was delicious and service was great.", Sentiment: "positive"},
	{Text: "Frustrated with the support team. They were unhelpful.", Sentiment: "negative"},
}

// Examples returns the demonstration texts. The sentiment labels are the
// expected ones and are never checked against live predictions.
func Examples() []Example {
	return append([]Example(nil), exampleTexts...)
}
