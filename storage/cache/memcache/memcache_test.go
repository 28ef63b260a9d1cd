package memcache

import (
	"testing"
	"time"
)

func TestCache(t *testing.T) {
	c := New()

	if ok, _ := c.Exists("k"); ok {
		t.Error("Exists() = true on empty cache")
	}

	if err := c.SetWithTTL("k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	v, ok, err := c.Get("k")
	if err != nil || !ok || v != "v" {
		t.Errorf("Get() = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}

	if err = c.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if ok, _ = c.Exists("k"); ok {
		t.Error("Exists() = true after Delete()")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New()
	if err := c.SetWithTTL("k", "v", -time.Second); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Exists("k"); ok {
		t.Error("Exists() = true for an expired key")
	}
}
