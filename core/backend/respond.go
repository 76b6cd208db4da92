package backend

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/query"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, value interface{}) {
	body, err := json.Marshal(value)
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorln("Error 4725: cannot marshal response")
		http.Error(w, "Error 4725", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// writeError maps err to a response. notFound is the message for query.ErrNotFound.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	rlog := logger.FromContext(r.Context())
	var execErr *csql.SQLExecutionError
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		access.Unauthorized(w)
	case errors.Is(err, query.ErrNotFound):
		http.Error(w, notFound, http.StatusNotFound)
	case errors.Is(err, query.ErrInvalidInput), errors.Is(err, query.ErrBadClause):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case csql.IsUniqueViolation(err):
		http.Error(w, "already exists", http.StatusConflict)
	case csql.IsInvalidTextRepresentation(err):
		http.Error(w, "invalid parameter", http.StatusBadRequest)
	case errors.As(err, &execErr):
		// already logged by the executor
		http.Error(w, "Error 4721", http.StatusInternalServerError)
	default:
		rlog.WithError(err).Errorln("Error 4700: request failed")
		http.Error(w, "Error 4700", http.StatusInternalServerError)
	}
}
