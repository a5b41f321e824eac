package cart

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func product(id string, price string) Product {
	return Product{ID: id, Name: "Item " + id, Price: decimal.RequireFromString(price)}
}

func TestAddItem_MergesSameProduct(t *testing.T) {
	s := NewStore()
	s.AddItem(product("1", "50.00"), 1)
	s.AddItem(product("1", "50.00"), 2)
	s.AddItem(product("2", "85.00"), 1)

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(items))
	}
	if items[0].ProductID != "1" || items[0].Quantity != 3 {
		t.Fatalf("expected product 1 x3 first, got %+v", items[0])
	}
	if !s.Total().Equal(decimal.RequireFromString("235")) {
		t.Fatalf("expected total 235, got %s", s.Total())
	}
	if s.Count() != 4 {
		t.Fatalf("expected 4 units, got %d", s.Count())
	}
}

func TestAddItem_IgnoresInvalidQuantity(t *testing.T) {
	s := NewStore()
	s.AddItem(product("1", "50.00"), 0)
	s.AddItem(product("1", "50.00"), -3)
	if len(s.Items()) != 0 {
		t.Fatalf("expected empty cart, got %+v", s.Items())
	}
}

func TestUpdateQuantity_RemovesAtZero(t *testing.T) {
	s := NewStore()
	s.AddItem(product("1", "50.00"), 2)
	s.AddItem(product("2", "60.00"), 1)

	s.UpdateQuantity("1", 5)
	if got := s.Items()[0].Quantity; got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}

	s.UpdateQuantity("1", 0)
	items := s.Items()
	if len(items) != 1 || items[0].ProductID != "2" {
		t.Fatalf("expected only product 2 left, got %+v", items)
	}

	s.UpdateQuantity("2", -1)
	if len(s.Items()) != 0 {
		t.Fatalf("expected empty cart, got %+v", s.Items())
	}

	// unknown product is a no-op
	s.UpdateQuantity("missing", 3)
	if len(s.Items()) != 0 {
		t.Fatalf("expected empty cart after unknown update")
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.AddItem(product("1", "50.00"), 1)
	snap := s.Items()
	snap[0].Quantity = 99
	s.AddItem(product("1", "50.00"), 1)

	if s.Items()[0].Quantity != 2 {
		t.Fatalf("snapshot mutation leaked into store")
	}
	if snap[0].Quantity != 99 {
		t.Fatalf("store mutation leaked into snapshot")
	}
}

func TestTotal_MatchesLinesAfterRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prices := []string{"50.00", "60.00", "75.00", "85.00", "12.35"}

	s := NewStore()
	for step := 0; step < 500; step++ {
		id := fmt.Sprintf("%d", rng.Intn(len(prices)))
		switch rng.Intn(4) {
		case 0, 1:
			s.AddItem(product(id, prices[rng.Intn(len(prices))]), rng.Intn(4))
		case 2:
			s.RemoveItem(id)
		case 3:
			s.UpdateQuantity(id, rng.Intn(5)-1)
		}

		want := decimal.Zero
		seen := map[string]bool{}
		for _, it := range s.Items() {
			if it.Quantity < 1 {
				t.Fatalf("step %d: non-positive quantity %+v", step, it)
			}
			if seen[it.ProductID] {
				t.Fatalf("step %d: duplicate product id %s", step, it.ProductID)
			}
			seen[it.ProductID] = true
			want = want.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		if !s.Total().Equal(want) {
			t.Fatalf("step %d: total %s != %s", step, s.Total(), want)
		}
	}
}

func TestSignOut_ClearsCart(t *testing.T) {
	s := NewStore()
	if s.IsAuthenticated() {
		t.Fatalf("new store must be signed out")
	}
	s.SignIn()
	s.AddItem(product("1", "50.00"), 1)
	s.SignOut()
	if s.IsAuthenticated() || len(s.Items()) != 0 {
		t.Fatalf("expected signed-out empty cart")
	}
}

func TestSessions_PerUserCarts(t *testing.T) {
	sessions := NewSessions()
	a := sessions.Get("alice")
	b := sessions.Get("bob")
	if a == b {
		t.Fatalf("expected distinct carts")
	}
	if !a.IsAuthenticated() {
		t.Fatalf("session cart must be signed in")
	}
	a.AddItem(product("1", "50.00"), 1)
	if sessions.Get("alice") != a {
		t.Fatalf("expected same cart on second lookup")
	}
	sessions.End("alice")
	if a.IsAuthenticated() || len(a.Items()) != 0 {
		t.Fatalf("ended session must be signed out and empty")
	}
	if sessions.Get("alice") == a {
		t.Fatalf("expected a fresh cart after End")
	}
}
