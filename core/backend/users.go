package backend

import (
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/sqlbase/core"
	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/query"
)

const (
	usersTable      = query.TableName("users")
	defaultElements = 10
	maxElements     = 100
)

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (b *Backend) handleUsers(router *mux.Router) {
	rlog := logger.Default()
	for _, path := range []string{"/users", "/users/"} {
		rlog.Infoln("  handle route: /api/v1"+path, "POST")
		router.HandleFunc(path, b.createUser).Methods(http.MethodPost)
		rlog.Infoln("  handle route: /api/v1"+path, "GET")
		router.HandleFunc(path, b.listUsers).Methods(http.MethodGet)
	}
	rlog.Infoln("  handle route: /api/v1/users/{id} GET,PUT,DELETE")
	router.HandleFunc("/users/{id}", b.readUser).Methods(http.MethodGet)
	router.HandleFunc("/users/{id}", b.updateUser).Methods(http.MethodPut)
	router.HandleFunc("/users/{id}", b.deleteUser).Methods(http.MethodDelete)
}

// decodeUser validates the request body against the user schema and hashes the password
func (b *Backend) decodeUser(w http.ResponseWriter, r *http.Request) (*userRequest, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return nil, false
	}
	if err := b.validator.ValidateBytes(body, userSchemaID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	var user userRequest
	if err := json.Unmarshal(body, &user); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	hash, err := access.HashPassword(user.Password)
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorln("Error 4711: cannot hash password")
		http.Error(w, "Error 4711", http.StatusInternalServerError)
		return nil, false
	}
	user.Password = hash
	return &user, true
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	user, ok := b.decodeUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	ins, _, err := b.db.Resolver().Insert(ctx, usersTable, b.db.Schema)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	res, err := b.db.Execute(ctx, ins.Set("username", user.Username).Set("password", user.Password))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	b.notify(ctx, core.OperationCreate, res.Values)
	writeJSON(w, r, http.StatusCreated, res)
}

func (b *Backend) readUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sel, _, err := b.db.Resolver().Select(ctx, usersTable, b.db.Schema, "username", "password")
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	res, err := b.db.Execute(ctx, sel.WhereEq("id", id))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if _, err := res.One(); err != nil {
		writeError(w, r, err, "User not found")
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, ok := b.decodeUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	upd, _, err := b.db.Resolver().Update(ctx, usersTable, b.db.Schema)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	upd = upd.Set("username", user.Username).Set("password", user.Password).WhereEq("id", id)
	res, err := b.db.Execute(ctx, upd)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if res.AffectedRows == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	payload := csql.Row{"id": id}
	for k, v := range res.Values {
		payload[k] = v
	}
	b.notify(ctx, core.OperationUpdate, payload)
	writeJSON(w, r, http.StatusOK, res)
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	del, _, err := b.db.Resolver().Delete(ctx, usersTable, b.db.Schema)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	res, err := b.db.Execute(ctx, del.WhereEq("id", id))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if res.AffectedRows == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	b.notify(ctx, core.OperationDelete, csql.Row{"id": id})
	writeJSON(w, r, http.StatusOK, res)
}

func intParameter(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := intParameter(r, "page", 1)
	if err != nil || page < 1 {
		http.Error(w, "parameter 'page': must be a positive integer", http.StatusBadRequest)
		return
	}
	elements, err := intParameter(r, "elements", defaultElements)
	if err != nil || elements < 1 || elements > maxElements {
		http.Error(w, "parameter 'elements': must be between 1 and "+strconv.Itoa(maxElements), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sel, table, err := b.db.Resolver().Select(ctx, usersTable, b.db.Schema, "id", "username")
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	id, err := table.Column("id")
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	p, err := b.db.Paginate(ctx, sel.OrderBy(id), elements, page)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}
