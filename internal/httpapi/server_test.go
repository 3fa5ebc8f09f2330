package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aikonstudios/aikon/internal/config"
	"github.com/aikonstudios/aikon/internal/observability"
	"github.com/aikonstudios/aikon/internal/persona"
	"github.com/aikonstudios/aikon/internal/session"
	"github.com/aikonstudios/aikon/internal/store"
	"github.com/aikonstudios/aikon/internal/tasks"
)

// idleRunner satisfies ConnectionRunner and waits out the connection.
type idleRunner struct{}

func (idleRunner) RunConnection(ctx context.Context, _ *session.Session, _ <-chan any, _ chan<- any) error {
	<-ctx.Done()
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		SessionInactivityTimeout: time.Minute,
	}
	st := store.NewInMemoryStore()
	metrics := observability.NewMetrics(fmt.Sprintf("httpapi_test_%d", time.Now().UnixNano()))
	srv := New(
		cfg,
		session.NewManager(cfg.SessionInactivityTimeout),
		idleRunner{},
		idleRunner{},
		st,
		persona.NewRegistry(st),
		tasks.NewService(st),
		metrics,
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", path, res.StatusCode)
		}
	}
}

func TestSessionCreateAndEnd(t *testing.T) {
	ts := newTestServer(t)

	res := postJSON(t, ts.URL+"/v1/chat/session", map[string]string{"user_id": "u1"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", res.StatusCode)
	}
	var created session.CreateResponse
	decodeBody(t, res, &created)
	if created.SessionID == "" || created.UserID != "u1" {
		t.Fatalf("created = %+v", created)
	}
	if created.PersonaID != persona.DefaultID {
		t.Fatalf("PersonaID = %q, want default", created.PersonaID)
	}
	if created.InactivityTTLMS != time.Minute.Milliseconds() {
		t.Fatalf("InactivityTTLMS = %d", created.InactivityTTLMS)
	}

	res = postJSON(t, ts.URL+"/v1/chat/session/"+created.SessionID+"/end", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d", res.StatusCode)
	}

	res = postJSON(t, ts.URL+"/v1/chat/session/"+created.SessionID+"/end", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("second end status = %d, want 404", res.StatusCode)
	}
}

func TestSessionCreateWithEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/chat/session", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 for empty body", res.StatusCode)
	}
	var created session.CreateResponse
	decodeBody(t, res, &created)
	if created.UserID != "anonymous" {
		t.Fatalf("UserID = %q, want anonymous", created.UserID)
	}
}

func TestChatWSRequiresKnownSession(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/chat/session/ws")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing session_id status = %d", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/v1/chat/session/ws?session_id=ghost")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", res.StatusCode)
	}
}

func TestTasksEndpoints(t *testing.T) {
	ts := newTestServer(t)

	res := postJSON(t, ts.URL+"/v1/tasks", map[string]string{"user_id": "u1", "title": "cut trailer"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", res.StatusCode)
	}
	var task store.Task
	decodeBody(t, res, &task)
	if task.ID == "" || task.Title != "cut trailer" {
		t.Fatalf("task = %+v", task)
	}

	res = postJSON(t, ts.URL+"/v1/tasks", map[string]string{"user_id": "u1", "title": "   "})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty title status = %d", res.StatusCode)
	}

	res = postJSON(t, ts.URL+"/v1/tasks/"+task.ID+"/done", map[string]any{"user_id": "u1", "done": true})
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("done status = %d", res.StatusCode)
	}

	listRes, err := http.Get(ts.URL + "/v1/tasks?user_id=u1")
	if err != nil {
		t.Fatalf("GET tasks: %v", err)
	}
	var listBody struct {
		Tasks []store.Task `json:"tasks"`
	}
	decodeBody(t, listRes, &listBody)
	if len(listBody.Tasks) != 1 || !listBody.Tasks[0].Done {
		t.Fatalf("tasks = %+v", listBody.Tasks)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/tasks/"+task.ID+"?user_id=u1", nil)
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delRes.Body.Close()
	if delRes.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", delRes.StatusCode)
	}
}

func TestPersonasEndpoints(t *testing.T) {
	ts := newTestServer(t)

	listRes, err := http.Get(ts.URL + "/v1/personas?user_id=u1")
	if err != nil {
		t.Fatalf("GET personas: %v", err)
	}
	var listBody struct {
		Personas []persona.Persona `json:"personas"`
	}
	decodeBody(t, listRes, &listBody)
	if len(listBody.Personas) == 0 || listBody.Personas[0].ID != persona.DefaultID {
		t.Fatalf("personas = %+v", listBody.Personas)
	}

	res := postJSON(t, ts.URL+"/v1/personas", map[string]string{
		"user_id":     "u1",
		"name":        "Pirate",
		"instruction": "talk like a pirate",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", res.StatusCode)
	}
	var created persona.Persona
	decodeBody(t, res, &created)
	if !created.IsCustom {
		t.Fatalf("created = %+v", created)
	}

	res = postJSON(t, ts.URL+"/v1/personas", map[string]string{"user_id": "u1", "name": "NoInstruction"})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid persona status = %d", res.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/personas/"+created.ID+"?user_id=u1", nil)
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delRes.Body.Close()
	if delRes.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", delRes.StatusCode)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	raw, _ := json.Marshal(map[string]string{
		"user_id":   "u1",
		"about_you": "indie animator",
	})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/v1/profile", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	putRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	putRes.Body.Close()
	if putRes.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", putRes.StatusCode)
	}

	getRes, err := http.Get(ts.URL + "/v1/profile?user_id=u1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var profile store.Profile
	decodeBody(t, getRes, &profile)
	if profile.AboutYou != "indie animator" {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/chat/history?user_id=u1&limit=-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/v1/chat/history?user_id=u1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Messages []store.MessageRecord `json:"messages"`
	}
	decodeBody(t, res, &body)
	if len(body.Messages) != 0 {
		t.Fatalf("messages = %+v", body.Messages)
	}
}

func TestPerfTurnsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/perf/turns")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var snap observability.TurnStageSnapshot
	decodeBody(t, res, &snap)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/v1/perf/turns?reset=1")
	if err != nil {
		t.Fatalf("GET reset: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", res.StatusCode)
	}
}
