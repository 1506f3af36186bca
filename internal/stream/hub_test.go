package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("party:ride-1")
	defer hub.Unregister(client)

	payload := []byte(`{"user_id":"u1","lat":39.07,"lng":26.88}`)
	hub.Broadcast("party:ride-1", payload)

	select {
	case msg := <-client.Send:
		if string(msg) != string(payload) {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubTopicIsolation(t *testing.T) {
	hub := NewHub(nil)
	partyClient := hub.Register("party:ride-1")
	sosClient := hub.Register("sos")
	defer hub.Unregister(partyClient)
	defer hub.Unregister(sosClient)

	hub.Broadcast("sos", []byte("signal"))

	select {
	case <-partyClient.Send:
		t.Fatalf("party client must not receive sos events")
	case msg := <-sosClient.Send:
		if string(msg) != "signal" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for sos message")
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("party:abc")
	if ch != "stream:party:abc" {
		t.Fatalf("unexpected channel: %s", ch)
	}
	if topicFromChannel(ch) != "party:abc" {
		t.Fatalf("unexpected topic")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("party:ride-2")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisBroadcastAndSubscribe(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client)
	ws := hub.Register("party:ride-redis")
	defer hub.Unregister(ws)

	hub.Broadcast("party:ride-redis", []byte("ping"))

	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for broadcast")
	}

	// events published by another instance arrive via the pattern subscription
	other := hub.Register("party:other")
	defer hub.Unregister(other)

	time.Sleep(20 * time.Millisecond)
	if err := client.Publish(context.Background(), "stream:party:other", "pong").Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	select {
	case msg := <-other.Send:
		if string(msg) != "pong" {
			t.Fatalf("unexpected message from redis")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for redis message")
	}
}

func TestHubRedisPublishError(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client)
	clientNode := hub.Register("party:bad")
	defer hub.Unregister(clientNode)

	hub.Broadcast("party:bad", []byte("ping"))
}
