package validation

import (
	"fmt"
	"net/http"
)

// ValidateAndParseMultipart validates request size and parses the multipart form.
// MaxBytesReader is the security boundary: the server reads at most maxSize
// bytes no matter how large the declared upload is, then stops. API clients
// that overshoot see the connection closed, which they handle as a failed
// upload and retry within limits.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return fmt.Errorf("%w: failed to parse multipart form", ErrPayloadTooLarge)
	}

	return nil
}

// CalculateMaxRequestSize returns the maximum request size including overhead buffer.
// It adds a buffer (typically 1 MiB) for form fields and multipart overhead.
func CalculateMaxRequestSize(maxFileSize int64, bufferSize int64) int64 {
	return maxFileSize + bufferSize
}
