package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"cashtrack/internal/blob"
	"cashtrack/internal/core"
	applog "cashtrack/internal/log"
)

type depositRequest struct {
	CleanerName string     `json:"cleanerName"`
	Site        string     `json:"site"`
	Date        time.Time  `json:"date"`
	CashAmount  core.Money `json:"cashAmount"`
	CardAmount  core.Money `json:"cardAmount"`
	AuthCode    string     `json:"authCode"`

	// SlipData carries a new slip image as a base64 data URI. Empty keeps
	// the existing slip; RemoveSlip drops it.
	SlipData   string `json:"slipData"`
	RemoveSlip bool   `json:"removeSlip"`
}

func (req depositRequest) toDomain(id, slip string) core.Deposit {
	d := core.Deposit{
		ID:          id,
		CleanerName: sanitizeInput(req.CleanerName),
		Site:        sanitizeInput(req.Site),
		Date:        req.Date,
		CashAmount:  req.CashAmount,
		CardAmount:  req.CardAmount,
		DepositSlip: slip,
		AuthCode:    sanitizeInput(req.AuthCode),
	}
	d.Normalize()
	return d
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := s.store.ListDeposits(r.Context(), parseOrder(r)...)
	if err != nil {
		s.logError(r, "List deposits failed", err, applog.OpList)
		writeStoreError(w, err)
		return
	}
	if deposits == nil {
		deposits = []core.Deposit{}
	}
	writeJSON(w, http.StatusOK, deposits)
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The id is assigned here so the slip blob can be keyed by the deposit
	// that owns it.
	id := uuid.NewString()
	d := req.toDomain(id, "")
	if err := d.Validate(); err != nil {
		writeStoreError(w, err)
		return
	}

	// Store the slip first so the record never references a missing blob.
	if req.SlipData != "" {
		url, err := s.saveSlip(r, id, req.SlipData)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		d.DepositSlip = url
	}

	created, err := s.store.PutDeposit(r.Context(), d)
	if err != nil {
		if d.DepositSlip != "" {
			s.deleteSlip(r, d.DepositSlip)
		}
		s.logError(r, "Create deposit failed", err, applog.OpCreate)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDeposit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetDeposit(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	slip := existing.DepositSlip
	savedNew := false
	switch {
	case req.SlipData != "":
		url, err := s.saveSlip(r, id, req.SlipData)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slip = url
		savedNew = true
	case req.RemoveSlip:
		slip = ""
	}

	updated, err := s.store.PutDeposit(r.Context(), req.toDomain(id, slip))
	if err != nil {
		// The record still references its old slip; only the orphan we
		// just wrote gets cleaned up.
		if savedNew && slip != existing.DepositSlip {
			s.deleteSlip(r, slip)
		}
		s.logError(r, "Update deposit failed", err, applog.OpUpdate)
		writeStoreError(w, err)
		return
	}
	if existing.DepositSlip != "" && existing.DepositSlip != slip {
		s.deleteSlip(r, existing.DepositSlip)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	slips, err := s.store.DeleteDeposits(r.Context(), []string{r.PathValue("id")})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	for _, slip := range slips {
		s.deleteSlip(r, slip)
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteBatchRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteDepositBatch(w http.ResponseWriter, r *http.Request) {
	var req deleteBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no ids given")
		return
	}
	slips, err := s.store.DeleteDeposits(r.Context(), req.IDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	for _, slip := range slips {
		s.deleteSlip(r, slip)
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(req.IDs)})
}

func (s *Server) saveSlip(r *http.Request, depositID, dataURI string) (string, error) {
	contentType, data, err := blob.ParseDataURI(dataURI)
	if err != nil {
		return "", err
	}
	return s.blobs.Save(r.Context(), blob.SlipName(depositID), contentType, data)
}

// deleteSlip removes a slip blob, logging rather than failing the request
// when the blob store misbehaves. The record is the source of truth.
func (s *Server) deleteSlip(r *http.Request, url string) {
	if url == "" {
		return
	}
	if err := s.blobs.Delete(r.Context(), url); err != nil {
		ctx := r.Context()
		applog.FromContext(ctx).WarnContext(ctx, "Slip delete failed",
			applog.FieldError, err.Error(),
			applog.FieldSlipRef, url)
	}
}
