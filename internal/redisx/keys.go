package redisx

import "time"

const (
	// Cached GET /cart response: cart:{namespace} -> response JSON
	KeyCart = "cart:%s"
)

var TTLCart = 5 * time.Minute
