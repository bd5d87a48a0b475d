package channel

import (
	"net/http"

	"chanwatch/internal/handler/http/auth"
	chUC "chanwatch/internal/usecase/channel"
)

// Register registers the channel routes. Every route requires a dashboard
// token.
func Register(mux *http.ServeMux, svc *chUC.Service) {
	mux.Handle("GET    /channels", auth.Authz(ListHandler{svc}))
	mux.Handle("POST   /channels", auth.Authz(CreateHandler{Svc: svc}))
	mux.Handle("GET    /channels/{id}", auth.Authz(GetHandler{svc}))
	mux.Handle("DELETE /channels/{id}", auth.Authz(DeleteHandler{svc}))
	mux.Handle("POST   /channels/{id}/check", auth.Authz(CheckHandler{svc}))
}
