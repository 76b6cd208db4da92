package backend

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/sqlbase/core/logger"
)

func (b *Backend) handleHealth(router *mux.Router) {
	logger.Default().Infoln("  handle route: /api/v1/healthcheck GET")
	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	logger.Default().Infoln("  handle route: /api/v1/healthcheck-db GET")
	router.HandleFunc("/healthcheck-db", func(w http.ResponseWriter, r *http.Request) {
		res, err := b.db.Execute(r.Context(), b.db.NowQuery())
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, r, http.StatusOK, res)
	}).Methods(http.MethodGet)
}
