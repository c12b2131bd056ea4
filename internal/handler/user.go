package handler

import (
	"net/http"

	"github.com/driftvault/driftvault/internal/middleware"
	"github.com/driftvault/driftvault/shared/api"
	"github.com/driftvault/driftvault/shared/utils"
)

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	profile, err := h.users.Profile(user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, api.ProfileResponse{Id: profile.Id, Name: profile.Name, Email: profile.Email})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	var req api.UpdateProfileRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	profile, err := h.users.UpdateName(user.Id, req.Name)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, api.ProfileResponse{Id: profile.Id, Name: profile.Name, Email: profile.Email})
}

func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	info, err := h.users.Quota(user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, api.QuotaResponse{
		UsedBytes:  uint64(info.UsedBytes),
		TotalBytes: uint64(info.TotalBytes),
		Percentage: info.Percentage,
		OwnedBytes: info.OwnedBytes,
	})
}
