package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithLogger(t *testing.T) {
	ctx, rlog := ContextWithLogger(context.Background())
	require.NotNil(t, rlog)
	id := RequestIDFromContext(ctx)
	assert.NotEmpty(t, id)

	same, again := ContextWithLogger(ctx)
	assert.Same(t, rlog, again)
	assert.Equal(t, id, RequestIDFromContext(same))

	ctx, rlog = ContextWithLoggerIdentity(ctx, "jane")
	assert.Equal(t, "jane", rlog.Data["identity"])
	assert.Equal(t, id, RequestIDFromContext(ctx))
	assert.Same(t, rlog, FromContext(ctx))
}

func TestFromContextWithoutLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(nil)) //nolint:staticcheck
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestAddRequestID(t *testing.T) {
	router := mux.NewRouter()
	AddRequestID(router)
	var seen string
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
}

func TestInitLoggerWithLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())
	require.NoError(t, InitLoggerWithLevel("warning"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.Error(t, InitLoggerWithLevel("loud"))
}
