package stmtstore_test

import (
	"errors"
	"reflect"
	"testing"

	"gorm.io/driver/oracle/internal/stmtstore"
)

type stmt struct {
	sql      string
	released int
	err      error
}

func (s *stmt) Release() error {
	s.released++
	return s.err
}

func TestStore_EvictsOldest(t *testing.T) {
	store, err := stmtstore.New[*stmt](2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, b, c := &stmt{sql: "a"}, &stmt{sql: "b"}, &stmt{sql: "c"}
	store.Put(a.sql, a)
	store.Put(b.sql, b)

	// touch a so b becomes the oldest
	if got, ok := store.Get("a"); !ok || got != a {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}
	store.Put(c.sql, c)

	if b.released != 1 {
		t.Fatalf("expected b to be released once, got %d", b.released)
	}
	if a.released != 0 || c.released != 0 {
		t.Fatalf("live statements were released: a=%d c=%d", a.released, c.released)
	}
	if got := store.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("Keys() = %v, want [a c]", got)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	store, _ := stmtstore.New[*stmt](4)
	first, second := &stmt{sql: "x"}, &stmt{sql: "x"}

	store.Put("x", first)
	store.Put("x", first)
	if first.released != 0 {
		t.Fatalf("re-putting the same statement must not release it")
	}

	store.Put("x", second)
	if first.released != 1 {
		t.Fatalf("replaced statement should be released")
	}
	if got, _ := store.Get("x"); got != second {
		t.Fatalf("expected the new statement to be cached")
	}
}

func TestStore_PurgeAndRemove(t *testing.T) {
	var failed []string
	store, _ := stmtstore.New[*stmt](4)
	store.OnReleaseError = func(key string, err error) { failed = append(failed, key) }

	bad := &stmt{sql: "bad", err: errors.New("ORA-01001: invalid cursor")}
	good := &stmt{sql: "good"}
	gone := &stmt{sql: "gone"}
	store.Put(bad.sql, bad)
	store.Put(good.sql, good)
	store.Put(gone.sql, gone)

	store.Remove("gone")
	if gone.released != 1 || store.Len() != 2 {
		t.Fatalf("Remove should release: released=%d len=%d", gone.released, store.Len())
	}

	store.Purge()
	if store.Len() != 0 || bad.released != 1 || good.released != 1 {
		t.Fatalf("Purge should release everything")
	}
	if !reflect.DeepEqual(failed, []string{"bad"}) {
		t.Fatalf("release errors = %v", failed)
	}
}

func TestStore_Disabled(t *testing.T) {
	store, err := stmtstore.New[*stmt](0)
	if err != nil || store != nil {
		t.Fatalf("size 0 should disable the store, got %v, %v", store, err)
	}

	s := &stmt{sql: "a"}
	store.Put("a", s)
	if _, ok := store.Get("a"); ok {
		t.Fatalf("disabled store returned a statement")
	}
	store.Purge()
	store.Remove("a")
	if store.Len() != 0 || store.Keys() != nil {
		t.Fatalf("disabled store should be empty")
	}
}
