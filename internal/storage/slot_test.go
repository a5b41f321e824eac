package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func exerciseSlot(t *testing.T, s Slot) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read empty slot: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil payload for absent slot, got %q", got)
	}

	if err := s.Write(ctx, []byte(`[{"orderRef":"ORD-1"}]`)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := s.Write(ctx, []byte(`[{"orderRef":"ORD-2"}]`)); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err = s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"orderRef":"ORD-2"}]`)) {
		t.Fatalf("expected last write back, got %q", got)
	}
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemorySlot())
}

func TestMemorySlot_ReadReturnsCopy(t *testing.T) {
	s := NewMemorySlot()
	_ = s.Write(context.Background(), []byte("abc"))
	got, _ := s.Read(context.Background())
	got[0] = 'x'
	again, _ := s.Read(context.Background())
	if string(again) != "abc" {
		t.Fatalf("caller mutation leaked into slot: %q", again)
	}
}

func TestFileSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pendingOrders.json")
	exerciseSlot(t, NewFileSlot(path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestSQLiteSlot(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "orders.db"), "pendingOrders")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	exerciseSlot(t, s)
}

func TestSQLiteSlot_NamesAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")
	a, err := OpenSQLite(path, "a")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	if err := a.Write(context.Background(), []byte("A")); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close a: %v", err)
	}

	b, err := OpenSQLite(path, "b")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	got, err := b.Read(context.Background())
	if err != nil {
		t.Fatalf("read b: %v", err)
	}
	if got != nil {
		t.Fatalf("slot b must be empty, got %q", got)
	}
}

func TestDynamoSlot(t *testing.T) {
	mock := newMockDynamo()
	exerciseSlot(t, NewDynamoSlot(mock, "slots", "pendingOrders"))

	if _, ok := mock.items["pendingOrders"]; !ok {
		t.Fatalf("expected item keyed by slot name")
	}
}

func TestSlotKey(t *testing.T) {
	if got := SlotKey("storefront", "pendingOrders"); got != "storefront:slot:pendingOrders" {
		t.Fatalf("unexpected key %s", got)
	}
}
