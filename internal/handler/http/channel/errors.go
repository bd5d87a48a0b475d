package channel

import (
	"errors"
	"net/http"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/handler/http/pathutil"
	"chanwatch/internal/handler/http/respond"
	chUC "chanwatch/internal/usecase/channel"
)

// writeError maps use case errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var valErr *entity.ValidationError
	switch {
	case errors.Is(err, chUC.ErrChannelNotFound):
		respond.SafeError(w, http.StatusNotFound, chUC.ErrChannelNotFound)
	case errors.Is(err, chUC.ErrDuplicateChannel):
		respond.SafeError(w, http.StatusConflict, chUC.ErrDuplicateChannel)
	case errors.As(err, &valErr):
		respond.Message(w, http.StatusBadRequest, valErr.Message)
	case errors.Is(err, pathutil.ErrInvalidID):
		respond.SafeError(w, http.StatusBadRequest, err)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}
