// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the social-platform verifiers. Platform APIs answer
// quickly; anything slower than this is treated as a failed check.
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
