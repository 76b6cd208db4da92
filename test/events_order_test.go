package test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/relabs-tech/sqlbase/core"
	"github.com/relabs-tech/sqlbase/core/notify"
)

type EventsOrderTestSuite struct {
	IntegrationTestSuite
}

func TestEventsOrderTestSuite(t *testing.T) {
	suite.Run(t, &EventsOrderTestSuite{})
}

func (s *EventsOrderTestSuite) TestUserLifecycleOnPostgres() {
	users := s.client.Resource("/api/v1/users")

	var created struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	status, err := users.Create(map[string]string{"username": "jane", "password": "s3cret"}, &created)
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, status)
	s.NotZero(created.ID)

	status, _ = users.Create(map[string]string{"username": "jane", "password": "again"}, nil)
	s.Equal(http.StatusConflict, status)

	var token struct {
		AccessToken string `json:"access_token"`
	}
	_, err = s.client.PostForm("/api/v1/auth/login", url.Values{"username": {"jane"}, "password": {"s3cret"}}, &token)
	s.Require().NoError(err)
	s.NotEmpty(token.AccessToken)

	var rows []map[string]interface{}
	_, err = s.client.RawGet("/api/v1/healthcheck-db", &rows)
	s.Require().NoError(err)
	s.Len(rows, 1)

	_, err = users.Delete(created.ID, nil)
	s.Require().NoError(err)
}

func (s *EventsOrderTestSuite) TestEventOrdering() {
	users := s.client.Resource("/api/v1/users")

	// every user goes through create, update and delete. Messages are keyed by
	// resource, so all events of all users must arrive in request order.
	type step struct {
		id        int64
		operation core.Operation
	}
	var expected []step
	for i := 0; i < 10; i++ {
		var created struct {
			ID int64 `json:"id"`
		}
		name := "order" + strconv.Itoa(i)
		_, err := users.Create(map[string]string{"username": name, "password": "pw"}, &created)
		s.Require().NoError(err)
		_, err = users.Update(created.ID, map[string]string{"username": name + "x", "password": "pw"}, nil)
		s.Require().NoError(err)
		_, err = users.Delete(created.ID, nil)
		s.Require().NoError(err)
		expected = append(expected,
			step{created.ID, core.OperationCreate},
			step{created.ID, core.OperationUpdate},
			step{created.ID, core.OperationDelete})
	}

	r := s.reader()
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ids := map[int64]bool{}
	for _, e := range expected {
		ids[e.id] = true
	}
	var got []step
	for len(got) < len(expected) {
		msg, err := r.ReadMessage(ctx)
		s.Require().NoError(err, "received %d of %d events", len(got), len(expected))
		s.Equal("user", string(msg.Key))

		var ev notify.Event
		s.Require().NoError(json.Unmarshal(msg.Value, &ev))
		var payload struct {
			ID int64 `json:"id"`
		}
		s.Require().NoError(json.Unmarshal(ev.Payload, &payload))
		if !ids[payload.ID] {
			// events of other tests in this suite
			continue
		}
		got = append(got, step{payload.ID, ev.Operation})
	}
	s.Equal(expected, got, fmt.Sprintf("%d events", len(got)))
}
