package channel

import (
	"net/http"

	"chanwatch/internal/handler/http/pathutil"
	chUC "chanwatch/internal/usecase/channel"
)

// DeleteHandler removes a channel. Removing an absent id still answers 204.
type DeleteHandler struct{ Svc *chUC.Service }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Svc.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
