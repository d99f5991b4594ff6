package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shoplist-server/entities"

	"github.com/gorilla/websocket"
)

// apiClient talks to the list server's REST and realtime endpoints.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// frame is a server-to-client realtime message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *apiClient) do(method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, e.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *apiClient) login(email, password string) error {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.do("POST", "/api/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return err
	}
	c.token = res.Token
	return nil
}

func (c *apiClient) getList(id string) (*entities.ShoppingList, error) {
	var list entities.ShoppingList
	if err := c.do("GET", "/api/lists/"+url.PathEscape(id), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *apiClient) setBought(id, itemID string, bought bool) error {
	return c.do("PATCH", "/api/lists/"+url.PathEscape(id)+"/items/"+url.PathEscape(itemID), map[string]bool{"bought": bought}, nil)
}

func (c *apiClient) deleteItem(id, itemID string) error {
	return c.do("DELETE", "/api/lists/"+url.PathEscape(id)+"/items/"+url.PathEscape(itemID), nil, nil)
}

// subscribe opens the realtime channel and joins the list room.
func (c *apiClient) subscribe(id string) (*websocket.Conn, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect realtime: %w", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "join", "list": id}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
