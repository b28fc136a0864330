package sentiment

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	analyzer    = govader.NewSentimentIntensityAnalyzer()
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

const (
	LABEL_POSITIVE = "positive"
	LABEL_NEGATIVE = "negative"
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // keep only the link text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := html.UnescapeString(tagPattern.ReplaceAllString(string(output), " "))
	return strings.Join(strings.Fields(plainText), " ")
}

type Score struct {
	Compound       float64
	Label          string
	Confidence     float64
	ConfidenceText string
}

// Analyze scores text with VADER and maps it onto the binary label set the
// prediction service exposes. Confidence is the probability-like value
// (|compound|+1)/2 as a percentage rounded to two decimals.
func Analyze(text string) Score {
	compound := analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound

	label := LABEL_POSITIVE
	if compound < 0 {
		label = LABEL_NEGATIVE
	}

	confidence := math.Round((math.Abs(compound)+1)/2*100*100) / 100
	return Score{
		Compound:       compound,
		Label:          label,
		Confidence:     confidence,
		ConfidenceText: fmt.Sprintf("%g%%", confidence),
	}
}
