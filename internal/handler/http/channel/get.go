package channel

import (
	"net/http"

	"chanwatch/internal/handler/http/pathutil"
	"chanwatch/internal/handler/http/respond"
	chUC "chanwatch/internal/usecase/channel"
)

type GetHandler struct{ Svc *chUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	ch, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(ch))
}
