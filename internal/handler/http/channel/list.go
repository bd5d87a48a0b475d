package channel

import (
	"net/http"

	"chanwatch/internal/handler/http/respond"
	chUC "chanwatch/internal/usecase/channel"
)

type ListHandler struct{ Svc *chUC.Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, ch := range list {
		out = append(out, toDTO(ch))
	}
	respond.JSON(w, http.StatusOK, out)
}
