package backend

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/query"
)

type tokenResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
}

type meResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (b *Backend) handleAuth(router *mux.Router) {
	rlog := logger.Default()

	rlog.Infoln("  handle route: /api/v1/auth/login POST")
	router.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)

	me := access.NewJwtMiddelware(b.issuer)(http.HandlerFunc(b.me))
	for _, path := range []string{"/auth/users/me", "/auth/users/me/"} {
		rlog.Infoln("  handle route: /api/v1"+path, "GET")
		router.Handle(path, me).Methods(http.MethodGet)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sel, _, err := b.db.Resolver().Select(ctx, query.TableName("users"), b.db.Schema, "username", "password")
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	res, err := b.db.Execute(ctx, sel.WhereEq("username", username))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	user, err := res.One()
	if err != nil {
		writeError(w, r, err, "User not found")
		return
	}

	hash, _ := user["password"].(string)
	if err := access.VerifyPassword(password, hash); err != nil {
		rlog.WithField("username", username).WithError(err).Infoln("login rejected")
		http.Error(w, "Incorrect password", http.StatusUnauthorized)
		return
	}

	token, err := b.issuer.Issue(username, hash)
	if err != nil {
		rlog.WithError(err).Errorln("Error 4710: cannot issue token")
		http.Error(w, "Error 4710", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, tokenResponse{Status: "success", AccessToken: token})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	claims := access.ClaimsFromContext(r.Context())
	if claims == nil {
		access.Unauthorized(w)
		return
	}
	writeJSON(w, r, http.StatusOK, meResponse{Username: claims.Username, Password: claims.Password})
}
