package httpapi

import (
	"net/http"

	"journalflow/internal/usecase/editorial"
)

type createVolumeRequest struct {
	Number int `json:"number"`
	Year   int `json:"year"`
}

func (h *Handler) handleCreateVolume(w http.ResponseWriter, r *http.Request) {
	var req createVolumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	v, err := h.service.CreateVolume(r.Context(), editorial.CreateVolumeInput{
		ActorID: actorFromContext(r.Context()),
		Number:  req.Number,
		Year:    req.Year,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, editorial.NewVolumeView(v))
}

func (h *Handler) handleListVolumes(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListVolumes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]editorial.VolumeView, 0, len(list))
	for _, v := range list {
		out = append(out, editorial.NewVolumeView(v))
	}
	writeJSON(w, http.StatusOK, out)
}

type createIssueRequest struct {
	VolumeID   uint64 `json:"volume_id"`
	Number     int    `json:"number"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	CoverAsset string `json:"cover_asset"`
}

func (h *Handler) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	issue, err := h.service.CreateIssue(r.Context(), editorial.CreateIssueInput{
		ActorID:    actorFromContext(r.Context()),
		VolumeID:   req.VolumeID,
		Number:     req.Number,
		Year:       req.Year,
		Month:      req.Month,
		CoverAsset: req.CoverAsset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, editorial.NewIssueView(issue))
}

func (h *Handler) handleListIssues(w http.ResponseWriter, r *http.Request) {
	volumeID, ok := queryUint(r, "volume_id")
	if !ok {
		badRequest(w, "invalid volume_id")
		return
	}
	list, err := h.service.ListIssues(r.Context(), volumeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]editorial.IssueView, 0, len(list))
	for _, issue := range list {
		out = append(out, editorial.NewIssueView(issue))
	}
	writeJSON(w, http.StatusOK, out)
}

type issueStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetIssueStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid issue id")
		return
	}
	var req issueStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	issue, err := h.service.SetIssueStatus(r.Context(), editorial.SetIssueStatusInput{
		ActorID: actorFromContext(r.Context()),
		IssueID: id,
		Status:  req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewIssueView(issue))
}
