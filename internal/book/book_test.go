package book

import (
	"testing"

	"simtrade/internal/domain"
)

func TestUpdateDerivesSpreadAndMid(t *testing.T) {
	b := New()

	snap := b.Update(domain.Tick{
		Symbol: "AAPL", Bid: 150.10, Ask: 150.17,
		BidSize: 300, AskSize: 500, Timestamp: 1700000000,
	})

	if snap.Spread != 0.07 {
		t.Errorf("spread = %v, want 0.07", snap.Spread)
	}
	if snap.Mid != 150.135 {
		t.Errorf("mid = %v, want 150.135", snap.Mid)
	}
	if snap.Bid != 150.10 || snap.Ask != 150.17 || snap.BidSize != 300 || snap.AskSize != 500 {
		t.Errorf("snapshot does not echo the tick: %+v", snap)
	}

	stored, ok := b.Snapshot("AAPL")
	if !ok {
		t.Fatal("snapshot not stored")
	}
	if stored != snap {
		t.Errorf("stored snapshot %+v differs from returned %+v", stored, snap)
	}
}

func TestUpdateReplacesSnapshot(t *testing.T) {
	b := New()
	b.Update(domain.Tick{Symbol: "AAPL", Bid: 100, Ask: 101})
	b.Update(domain.Tick{Symbol: "AAPL", Bid: 102, Ask: 103})

	snap, _ := b.Snapshot("AAPL")
	if snap.Bid != 102 {
		t.Errorf("bid = %v, want the newer 102", snap.Bid)
	}
}

func TestMarks(t *testing.T) {
	b := New()
	b.Update(domain.Tick{Symbol: "AAPL", Bid: 150, Ask: 151})
	b.Update(domain.Tick{Symbol: "MSFT", Bid: 300, Ask: 300.5})

	marks := b.Marks()
	if len(marks) != 2 {
		t.Fatalf("got %d marks, want 2", len(marks))
	}
	if marks["AAPL"] != 150.5 {
		t.Errorf("AAPL mark = %v, want 150.5", marks["AAPL"])
	}
	if marks["MSFT"] != 300.25 {
		t.Errorf("MSFT mark = %v, want 300.25", marks["MSFT"])
	}
}

func TestSnapshotMissingSymbol(t *testing.T) {
	b := New()
	if _, ok := b.Snapshot("AAPL"); ok {
		t.Error("Snapshot reported a symbol that was never updated")
	}
	if n := len(b.All()); n != 0 {
		t.Errorf("All returned %d snapshots from an empty book", n)
	}
}
