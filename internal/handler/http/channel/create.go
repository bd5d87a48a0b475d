package channel

import (
	"encoding/json"
	"errors"
	"net/http"

	"chanwatch/internal/handler/http/respond"
	chUC "chanwatch/internal/usecase/channel"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateRequest is the body of POST /channels.
type CreateRequest struct {
	URL string `json:"url" validate:"required,url,max=2048"`
}

// Validate checks the request shape. Host restrictions are applied by the
// use case.
func (req CreateRequest) Validate() error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Tag() {
	case "required":
		return errors.New("url is required")
	case "max":
		return errors.New("url too long")
	default:
		return errors.New("url must be a valid URL")
	}
}

// CreateHandler adds a channel. The response reflects the best-effort
// reachability check run right after insertion.
type CreateHandler struct{ Svc *chUC.Service }

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	ch, err := h.Svc.Add(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(ch))
}
