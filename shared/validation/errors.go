package validation

import "errors"

// ErrPayloadTooLarge is returned when the request body exceeds size limits
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrFileMissing is returned when the multipart form has no file part
var ErrFileMissing = errors.New("file missing")
