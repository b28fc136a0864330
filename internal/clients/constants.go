package clients

import "time"

const (
	PREDICT_PATH    = "/predict"
	HEALTH_PATH     = "/health"
	DEFAULT_TIMEOUT = 60 * time.Second
	PREVIEW_LENGTH  = 50
	USER_AGENT      = "sentilens-client/1.0 (+https://github.com/spacesedan/sentilens)"
)
