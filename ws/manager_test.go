package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"shoplist-server/entities"
)

func testClient(user string, buffer int) *Client {
	return &Client{UserID: user, send: make(chan []byte, buffer)}
}

func recv(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("invalid frame %s: %v", msg, err)
		}
		return env
	default:
		t.Fatal("expected a queued frame")
	}
	return Envelope{}
}

func expectEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected frame %s", msg)
	default:
	}
}

func TestManagerJoinAndPublish(t *testing.T) {
	m := NewManager()
	a := testClient("a", 4)
	b := testClient("b", 4)
	other := testClient("c", 4)
	for _, c := range []*Client{a, b, other} {
		m.Register(c)
	}

	m.Join(a, "list-1")
	m.Join(b, "list-1")
	m.Join(other, "list-2")

	if got := m.Members("list-1"); got != 2 {
		t.Fatalf("Members(list-1) = %d, want 2", got)
	}

	list := &entities.ShoppingList{UUID: "list-1", Name: "Groceries", Items: []entities.Item{{ID: "i1", Name: "Milk", Category: "Groceries"}}}
	m.PublishUpdate("list-1", list)

	for _, c := range []*Client{a, b} {
		env := recv(t, c)
		if env.Event != EventListUpdate {
			t.Errorf("event = %q, want %q", env.Event, EventListUpdate)
		}
		doc, _ := env.Data.(map[string]any)
		if doc["uuid"] != "list-1" || doc["name"] != "Groceries" {
			t.Errorf("unexpected document %v", env.Data)
		}
		items, _ := doc["items"].([]any)
		if len(items) != 1 {
			t.Errorf("expected the full item list, got %v", doc["items"])
		}
	}
	expectEmpty(t, other)
}

func TestManagerLeaveAndUnregister(t *testing.T) {
	m := NewManager()
	a := testClient("a", 4)
	m.Register(a)
	m.Join(a, "list-1")
	m.Join(a, "list-2")

	m.Leave(a, "list-1")
	m.PublishUpdate("list-1", &entities.ShoppingList{UUID: "list-1"})
	expectEmpty(t, a)
	if _, ok := m.Channels()["list-1"]; ok {
		t.Error("empty channel should be removed")
	}

	m.Unregister(a)
	m.Unregister(a)
	if m.Members("list-2") != 0 || m.ConnectedClients() != 0 {
		t.Error("unregister should clear all membership")
	}
	if _, ok := <-a.send; ok {
		t.Error("send queue should be closed")
	}
	if m.Join(a, "list-3") {
		t.Error("unregistered clients cannot join")
	}
}

func TestManagerPublishDeletion(t *testing.T) {
	m := NewManager()
	a := testClient("a", 4)
	b := testClient("b", 4)
	m.Register(a)
	m.Register(b)
	m.Join(a, "list-1")
	m.Join(b, "list-1")

	m.PublishDeletion("list-1")
	for _, c := range []*Client{a, b} {
		env := recv(t, c)
		if env.Event != EventListDeleted {
			t.Errorf("event = %q, want %q", env.Event, EventListDeleted)
		}
		data, _ := env.Data.(map[string]any)
		if data["uuid"] != "list-1" {
			t.Errorf("deletion payload = %v", env.Data)
		}
	}
	if m.Members("list-1") != 0 {
		t.Error("channel should be terminated after deletion")
	}
	if m.ConnectedClients() != 2 {
		t.Error("deletion must not disconnect clients")
	}

	m.PublishUpdate("list-1", &entities.ShoppingList{UUID: "list-1"})
	expectEmpty(t, a)
}

func TestManagerDropsSlowClient(t *testing.T) {
	m := NewManager()
	slow := testClient("slow", 1)
	fast := testClient("fast", 8)
	m.Register(slow)
	m.Register(fast)
	m.Join(slow, "list-1")
	m.Join(fast, "list-1")

	list := &entities.ShoppingList{UUID: "list-1"}
	m.PublishUpdate("list-1", list)
	m.PublishUpdate("list-1", list)

	if m.Members("list-1") != 1 {
		t.Errorf("Members = %d, want only the fast client", m.Members("list-1"))
	}
	recv(t, fast)
	recv(t, fast)
}

func TestManagerConcurrentPublish(t *testing.T) {
	m := NewManager()
	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = testClient("u", 256)
		m.Register(clients[i])
		m.Join(clients[i], "list-1")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.PublishUpdate("list-1", &entities.ShoppingList{UUID: "list-1"})
		}()
		go func(c *Client) {
			defer wg.Done()
			m.Unregister(c)
		}(clients[i])
	}
	wg.Wait()

	if got := m.Members("list-1"); got != 10 {
		t.Errorf("Members = %d, want 10", got)
	}
	for _, c := range clients[10:] {
		if len(c.send) != 10 {
			t.Errorf("remaining client received %d frames, want 10", len(c.send))
		}
	}
}

func TestManagerSendTo(t *testing.T) {
	m := NewManager()
	a := testClient("a", 1)
	if m.SendTo(a, EventJoined, nil) {
		t.Error("SendTo an unregistered client should fail")
	}
	m.Register(a)
	if !m.SendTo(a, EventJoined, map[string]string{"uuid": "list-1"}) {
		t.Fatal("SendTo failed")
	}
	if env := recv(t, a); env.Event != EventJoined {
		t.Errorf("event = %q", env.Event)
	}
}
