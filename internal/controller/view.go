package controller

import "github.com/spacesedan/sentilens/internal/models"

// RenderState is the single thing a presentation layer shows at a time.
type RenderState int

const (
	RenderIdle RenderState = iota
	RenderPending
	RenderResult
	RenderError
)

func (r RenderState) String() string {
	switch r {
	case RenderPending:
		return "pending"
	case RenderResult:
		return "result"
	case RenderError:
		return "error"
	default:
		return "idle"
	}
}

func ViewOf(s models.InteractionState) RenderState {
	switch {
	case s.IsPending:
		return RenderPending
	case s.LastError != "":
		return RenderError
	case s.LastResult != nil:
		return RenderResult
	default:
		return RenderIdle
	}
}

func (c *AnalysisController) View() RenderState {
	return ViewOf(c.State())
}
