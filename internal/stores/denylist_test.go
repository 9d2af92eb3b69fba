package stores

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDenylist(t *testing.T) (*Denylist, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewDenylist(rdb, "t"), mr
}

func TestDenylistAddAndContains(t *testing.T) {
	deny, _ := newTestDenylist(t)
	ctx := context.Background()

	if err := deny.Add(ctx, "tok-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	revoked, err := deny.Contains(ctx, "tok-a")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !revoked {
		t.Fatal("added token must be revoked")
	}

	other, err := deny.Contains(ctx, "tok-b")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if other {
		t.Fatal("unrelated token must not be revoked")
	}
}

func TestDenylistEntryExpiresWithToken(t *testing.T) {
	deny, mr := newTestDenylist(t)
	ctx := context.Background()

	if err := deny.Add(ctx, "tok-a", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	revoked, err := deny.Contains(ctx, "tok-a")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if revoked {
		t.Fatal("entry must expire with the token")
	}
}

func TestDenylistSkipsExpiredTokens(t *testing.T) {
	deny, _ := newTestDenylist(t)
	ctx := context.Background()

	if err := deny.Add(ctx, "tok-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	revoked, err := deny.Contains(ctx, "tok-old")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if revoked {
		t.Fatal("already-expired token must not be stored")
	}
}
