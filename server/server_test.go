package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"shoplist-server/confs"
	"shoplist-server/repositories"
	"shoplist-server/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testOrigin = "http://lists.example"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &confs.Config{
		Port:           0,
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{testOrigin},
		StoreDriver:    confs.StoreDriverMemory,
	}
	mem := repositories.NewMemoryStore()
	return NewServer(cfg, Stores{Users: mem.Users(), Lists: mem.Lists()}, services.KeywordSuggester{})
}

// do sends a JSON request and decodes the response body into out when set.
func do(t *testing.T, h http.Handler, method, path, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

type listDoc struct {
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	Collaborators []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"collaborators"`
	Items []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
		Bought   bool   `json:"bought"`
	} `json:"items"`
}

func register(t *testing.T, h http.Handler, name, email string) authResponse {
	t.Helper()
	var res authResponse
	code := do(t, h, "POST", "/api/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	}, &res)
	if code != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, code)
	}
	return res
}

func TestAuthEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()
	reg := register(t, h, "Ann", "ann@example.com")
	if reg.Token == "" || reg.User.Email != "ann@example.com" {
		t.Fatalf("unexpected register response %+v", reg)
	}

	var errBody map[string]string
	if code := do(t, h, "POST", "/api/register", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "x",
	}, &errBody); code != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d", code)
	}
	if errBody["error"] == "" {
		t.Error("expected an error message")
	}

	if code := do(t, h, "POST", "/api/register", "", map[string]string{"email": "b@example.com"}, nil); code != http.StatusBadRequest {
		t.Errorf("missing fields status = %d", code)
	}

	var login authResponse
	if code := do(t, h, "POST", "/api/login", "", map[string]string{
		"email": "ann@example.com", "password": "password123",
	}, &login); code != http.StatusOK || login.Token == "" {
		t.Errorf("login status = %d, token = %q", code, login.Token)
	}

	var wrong, unknown map[string]string
	c1 := do(t, h, "POST", "/api/login", "", map[string]string{"email": "ann@example.com", "password": "bad"}, &wrong)
	c2 := do(t, h, "POST", "/api/login", "", map[string]string{"email": "zed@example.com", "password": "bad"}, &unknown)
	if c1 != http.StatusBadRequest || c2 != http.StatusBadRequest || wrong["error"] != unknown["error"] {
		t.Errorf("login failures must look identical: %d %v / %d %v", c1, wrong, c2, unknown)
	}

	var me map[string]string
	if code := do(t, h, "GET", "/api/me", login.Token, nil, &me); code != http.StatusOK || me["email"] != "ann@example.com" {
		t.Errorf("me: status %d body %v", code, me)
	}

	for _, tok := range []string{"", "garbage"} {
		if code := do(t, h, "GET", "/api/user/lists", tok, nil, nil); code != http.StatusUnauthorized {
			t.Errorf("token %q: status %d, want 401", tok, code)
		}
	}
}

func TestListEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()
	a := register(t, h, "A", "a@example.com")
	b := register(t, h, "B", "b@example.com")
	c := register(t, h, "C", "c@example.com")

	var created map[string]string
	if code := do(t, h, "POST", "/api/lists", a.Token, map[string]string{"name": "Groceries"}, &created); code != http.StatusCreated {
		t.Fatalf("create list status %d", code)
	}
	id := created["uuid"]
	if id == "" || created["name"] != "Groceries" {
		t.Fatalf("create list response %v", created)
	}
	if code := do(t, h, "POST", "/api/lists", a.Token, map[string]string{"name": " "}, nil); code != http.StatusBadRequest {
		t.Errorf("empty list name status %d", code)
	}

	var list listDoc
	if code := do(t, h, "POST", "/api/lists/"+id+"/items", a.Token, map[string]string{"name": "Milk"}, &list); code != http.StatusCreated {
		t.Fatalf("add item status %d", code)
	}
	itemID := list.Items[0].ID

	if code := do(t, h, "PATCH", "/api/lists/"+id+"/items/"+itemID, a.Token, map[string]bool{"bought": true}, &list); code != http.StatusOK {
		t.Fatalf("toggle status %d", code)
	}
	if code := do(t, h, "PATCH", "/api/lists/"+id+"/items/"+itemID, a.Token, map[string]string{}, nil); code != http.StatusBadRequest {
		t.Errorf("toggle without bought status %d", code)
	}
	if code := do(t, h, "PATCH", "/api/lists/"+id+"/items/missing", a.Token, map[string]bool{"bought": true}, nil); code != http.StatusNotFound {
		t.Errorf("toggle missing item status %d", code)
	}

	if code := do(t, h, "GET", "/api/lists/"+id, a.Token, nil, &list); code != http.StatusOK {
		t.Fatalf("get list status %d", code)
	}
	if len(list.Items) != 1 || list.Items[0].Name != "Milk" || !list.Items[0].Bought || list.Items[0].Category != "Groceries" {
		t.Errorf("list items = %+v", list.Items)
	}

	if code := do(t, h, "GET", "/api/lists/"+id, c.Token, nil, nil); code != http.StatusForbidden {
		t.Errorf("stranger get status %d", code)
	}
	if code := do(t, h, "GET", "/api/lists/does-not-exist", a.Token, nil, nil); code != http.StatusNotFound {
		t.Errorf("missing list status %d", code)
	}

	var msg map[string]string
	if code := do(t, h, "POST", "/api/lists/"+id+"/invite", a.Token, map[string]string{"email": "b@example.com"}, &msg); code != http.StatusOK {
		t.Fatalf("invite status %d", code)
	}
	if code := do(t, h, "POST", "/api/lists/"+id+"/invite", a.Token, map[string]string{"email": "b@example.com"}, nil); code != http.StatusBadRequest {
		t.Errorf("repeat invite status %d", code)
	}
	if code := do(t, h, "POST", "/api/lists/"+id+"/invite", a.Token, map[string]string{"email": "nobody@example.com"}, nil); code != http.StatusNotFound {
		t.Errorf("invite unknown status %d", code)
	}
	if code := do(t, h, "POST", "/api/lists/"+id+"/invite", b.Token, map[string]string{"email": "c@example.com"}, nil); code != http.StatusForbidden {
		t.Errorf("collaborator invite status %d", code)
	}

	if code := do(t, h, "POST", "/api/lists/"+id+"/items", b.Token, map[string]string{"name": "Bread", "category": "Bakery"}, &list); code != http.StatusCreated {
		t.Errorf("collaborator add item status %d", code)
	}
	if code := do(t, h, "PATCH", "/api/lists/"+id, b.Token, map[string]string{"name": "Mine"}, nil); code != http.StatusForbidden {
		t.Errorf("collaborator rename status %d", code)
	}
	if code := do(t, h, "DELETE", "/api/lists/"+id+"/items/not-there", b.Token, nil, nil); code != http.StatusOK {
		t.Errorf("idempotent delete item status %d", code)
	}

	var shared []listDoc
	if code := do(t, h, "GET", "/api/shared/lists", b.Token, nil, &shared); code != http.StatusOK || len(shared) != 1 {
		t.Errorf("shared lists: status %d, %d lists", code, len(shared))
	}
	var owned []listDoc
	if code := do(t, h, "GET", "/api/user/lists", c.Token, nil, &owned); code != http.StatusOK || owned == nil || len(owned) != 0 {
		t.Errorf("owned lists for C: status %d, %v", code, owned)
	}

	if code := do(t, h, "PATCH", "/api/lists/"+id, a.Token, map[string]string{"name": "Weekly"}, &list); code != http.StatusOK || list.Name != "Weekly" {
		t.Errorf("owner rename: status %d name %q", code, list.Name)
	}
	if code := do(t, h, "DELETE", "/api/lists/"+id, b.Token, nil, nil); code != http.StatusForbidden {
		t.Errorf("collaborator delete status %d", code)
	}
	if code := do(t, h, "DELETE", "/api/lists/"+id, a.Token, nil, &msg); code != http.StatusOK || msg["message"] == "" {
		t.Errorf("owner delete status %d body %v", code, msg)
	}
	if code := do(t, h, "GET", "/api/lists/"+id, a.Token, nil, nil); code != http.StatusNotFound {
		t.Errorf("deleted list status %d", code)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	var res struct {
		Suggestions []string `json:"suggestions"`
	}
	if code := do(t, h, "POST", "/api/ai-suggest", "", map[string]string{"query": "borscht tonight"}, &res); code != http.StatusOK {
		t.Fatalf("suggest status %d", code)
	}
	if len(res.Suggestions) == 0 || res.Suggestions[0] != "Beets" {
		t.Errorf("suggestions = %v", res.Suggestions)
	}
	if code := do(t, h, "POST", "/api/ai-suggest", "", map[string]string{"query": "  "}, nil); code != http.StatusBadRequest {
		t.Errorf("empty query status %d", code)
	}
}

func TestCORSAllowList(t *testing.T) {
	h := newTestServer(t).Handler()

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("OPTIONS", "/api/lists", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := preflight(testOrigin); w.Header().Get("Access-Control-Allow-Origin") != testOrigin {
		t.Errorf("allowed origin not echoed, headers %v", w.Header())
	}
	if w := preflight("http://evil.example"); w.Code != http.StatusForbidden || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("foreign origin: status %d headers %v", w.Code, w.Header())
	}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func join(t *testing.T, conn *websocket.Conn, id string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"type": "join", "list": id}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if f := readFrame(t, conn); f.Event != "joined" {
		t.Fatalf("expected joined ack, got %s %s", f.Event, f.Data)
	}
}

func TestRealtimeCollaboration(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	h := srv.Handler()

	a := register(t, h, "A", "a@example.com")
	b := register(t, h, "B", "b@example.com")
	c := register(t, h, "C", "c@example.com")

	var created map[string]string
	do(t, h, "POST", "/api/lists", a.Token, map[string]string{"name": "Party"}, &created)
	id := created["uuid"]
	if code := do(t, h, "POST", "/api/lists/"+id+"/invite", a.Token, map[string]string{"email": "b@example.com"}, nil); code != http.StatusOK {
		t.Fatalf("invite status %d", code)
	}

	connA := dial(t, ts, a.Token)
	connB := dial(t, ts, b.Token)
	join(t, connA, id)
	join(t, connB, id)

	t.Run("StrangerCannotJoin", func(t *testing.T) {
		connC := dial(t, ts, c.Token)
		if err := connC.WriteJSON(map[string]string{"type": "join", "list": id}); err != nil {
			t.Fatalf("join: %v", err)
		}
		if f := readFrame(t, connC); f.Event != "error" {
			t.Errorf("expected error frame, got %s", f.Event)
		}
	})

	var list listDoc
	if code := do(t, h, "POST", "/api/lists/"+id+"/items", b.Token, map[string]string{"name": "Cake"}, &list); code != http.StatusCreated {
		t.Fatalf("add item status %d", code)
	}
	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		f := readFrame(t, conn)
		if f.Event != "listUpdate" {
			t.Fatalf("%s: event %q, want listUpdate", name, f.Event)
		}
		var doc listDoc
		if err := json.Unmarshal(f.Data, &doc); err != nil {
			t.Fatalf("%s: decode document: %v", name, err)
		}
		if doc.UUID != id || len(doc.Items) != 1 || doc.Items[0].Name != "Cake" || doc.Items[0].ID != list.Items[0].ID {
			t.Errorf("%s: pushed document %+v does not match persisted %+v", name, doc, list)
		}
	}

	if code := do(t, h, "PATCH", "/api/lists/"+id, b.Token, map[string]string{"name": "B's"}, nil); code != http.StatusForbidden {
		t.Errorf("collaborator rename status %d", code)
	}

	if code := do(t, h, "DELETE", "/api/lists/"+id, a.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("delete status %d", code)
	}
	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		f := readFrame(t, conn)
		if f.Event != "listDeleted" {
			t.Fatalf("%s: event %q, want listDeleted", name, f.Event)
		}
		var data map[string]string
		_ = json.Unmarshal(f.Data, &data)
		if data["uuid"] != id {
			t.Errorf("%s: deletion payload %s", name, f.Data)
		}
	}
	if srv.Manager().Members(id) != 0 {
		t.Error("channel should be closed after deletion")
	}
}

func TestRealtimeRejectsBadToken(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response %+v", resp)
	}
}

func TestRealtimeRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	a := register(t, srv.Handler(), "A", "a@example.com")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + a.Token
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected the handshake from a foreign origin to fail")
	}
}
