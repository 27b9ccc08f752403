package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestClient_Ping_OK(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestClient_Ping_FailsFast(t *testing.T) {
	c := New("127.0.0.1:1", "", 0) // guaranteed unreachable

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := c.Ping(ctx); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestKey_Namespaced(t *testing.T) {
	if got := key("rl", "login", "1.2.3.4"); got != "otp-auth:rl:login:1.2.3.4" {
		t.Fatalf("unexpected key %q", got)
	}
}
