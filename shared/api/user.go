package api

type ProfileResponse struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

// QuotaResponse mirrors filesystem statistics of the content volume plus the
// caller's unique owned bytes.
type QuotaResponse struct {
	UsedBytes  uint64  `json:"usedBytes"`
	TotalBytes uint64  `json:"totalBytes"`
	Percentage float64 `json:"percentage"`
	OwnedBytes int64   `json:"ownedBytes"`
}

// Thumbnails

type ThumbnailBatchRequest struct {
	FileIds []string `json:"fileIds" validate:"required,min=1"`
}
