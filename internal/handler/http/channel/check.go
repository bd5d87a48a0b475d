package channel

import (
	"net/http"

	"chanwatch/internal/handler/http/pathutil"
	"chanwatch/internal/handler/http/respond"
	chUC "chanwatch/internal/usecase/channel"
)

// CheckHandler runs one reconciliation pass for a stored channel and
// returns what it observed.
type CheckHandler struct{ Svc *chUC.Service }

func (h CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Svc.Check(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toCheckDTO(out))
}
