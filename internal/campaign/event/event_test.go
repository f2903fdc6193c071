package event

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

var testStamp = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func validEvent() Event {
	return Event{
		CampaignID:  1,
		Timestamp:   testStamp,
		Type:        TypeCampaignLaunched,
		Actor:       "creator-1",
		PayloadJSON: []byte(`{"id":1,"creator":"creator-1","name":"Agent Nova","funding_target":"10","token_supply":"1000000"}`),
	}
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeCampaignLaunched, true},
		{TypeCampaignContributed, true},
		{TypeCampaignBonded, true},
		{TypePoolCreated, true},
		{TypePoolSwapped, true},
		{TypePoolLiquidityAdded, true},
		{TypePoolLiquidityRemoved, true},
		// The fact type set is closed.
		{"", false},
		{"campaign.updated", false},
		{"unknown.event", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type(%q).IsValid() = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestType_Domain(t *testing.T) {
	tests := []struct {
		eventType Type
		want      string
	}{
		{TypeCampaignLaunched, "campaign"},
		{TypeCampaignBonded, "campaign"},
		{TypePoolSwapped, "pool"},
		{Type("bare"), "bare"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.Domain(); got != tt.want {
				t.Errorf("Type(%q).Domain() = %q, want %q", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
		wantOK bool
	}{
		{name: "valid", mutate: func(e *Event) {}, wantOK: true},
		{name: "missing campaign id", mutate: func(e *Event) { e.CampaignID = 0 }},
		{name: "unknown type", mutate: func(e *Event) { e.Type = "campaign.updated" }},
		{name: "blank actor", mutate: func(e *Event) { e.Actor = "   " }},
		{name: "zero timestamp", mutate: func(e *Event) { e.Timestamp = time.Time{} }},
		{name: "empty payload", mutate: func(e *Event) { e.PayloadJSON = nil }},
		{name: "malformed payload", mutate: func(e *Event) { e.PayloadJSON = []byte(`{"a":`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := validEvent()
			tt.mutate(&evt)

			err := evt.Validate()
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !apperrors.IsCode(err, apperrors.CodeEventInvalid) {
				t.Fatalf("Validate() error = %v, want code %v", err, apperrors.CodeEventInvalid)
			}
		})
	}
}

func TestSeal(t *testing.T) {
	first, err := Seal(validEvent(), 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if first.Seq != 1 {
		t.Fatalf("first seq = %d, want 1", first.Seq)
	}
	if first.Hash == "" {
		t.Fatal("expected first hash")
	}
	if len(first.Hash) != 32 {
		t.Fatalf("hash length = %d, want 32 hex chars", len(first.Hash))
	}
	if first.PrevHash != "" {
		t.Fatalf("first prev hash = %q, want empty", first.PrevHash)
	}
	if first.ChainHash == "" {
		t.Fatal("expected first chain hash")
	}

	next := validEvent()
	next.Type = TypeCampaignContributed
	next.Actor = "alice"
	next.PayloadJSON = []byte(`{"contributor":"alice","amount":"4","total_raised":"4","contributor_total":"4"}`)

	second, err := Seal(next, 2, first.ChainHash)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("second seq = %d, want 2", second.Seq)
	}
	if second.PrevHash != first.ChainHash {
		t.Fatalf("second prev hash = %q, want %q", second.PrevHash, first.ChainHash)
	}
	if second.ChainHash == first.ChainHash {
		t.Fatal("chain hash did not advance")
	}
}

func TestSealDeterministic(t *testing.T) {
	a, err := Seal(validEvent(), 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	b, err := Seal(validEvent(), 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if a.Hash != b.Hash || a.ChainHash != b.ChainHash {
		t.Fatalf("hashes differ across identical seals: %q/%q vs %q/%q", a.Hash, a.ChainHash, b.Hash, b.ChainHash)
	}
}

func TestSealPayloadKeyOrderIndependent(t *testing.T) {
	evt := validEvent()
	evt.PayloadJSON = []byte(`{"a":1,"b":"two"}`)
	reordered := validEvent()
	reordered.PayloadJSON = []byte(`{"b":"two","a":1}`)

	a, err := Seal(evt, 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	b, err := Seal(reordered, 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if a.Hash != b.Hash {
		t.Fatalf("hash = %q vs %q, want identical for reordered payload keys", a.Hash, b.Hash)
	}
}

func TestSealIgnoresTraceMetadata(t *testing.T) {
	plain, err := Seal(validEvent(), 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	traced := validEvent()
	traced.TraceID = "0af7651916cd43dd8448eb211c80319c"
	traced.SpanID = "b7ad6b7169203331"
	sealed, err := Seal(traced, 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if sealed.Hash != plain.Hash {
		t.Fatalf("hash = %q vs %q, want trace metadata outside the hash", sealed.Hash, plain.Hash)
	}
}

func TestSealRejectsZeroSeq(t *testing.T) {
	_, err := Seal(validEvent(), 0, "")
	if !apperrors.IsCode(err, apperrors.CodeEventInvalid) {
		t.Fatalf("Seal(seq=0) error = %v, want code %v", err, apperrors.CodeEventInvalid)
	}
}

func TestCanonicalJSON(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"b":   2,
		"a":   map[string]any{"z": true, "m": "<tag>"},
		"arr": []any{3, 1},
	})
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}

	want := `{"a":{"m":"<tag>","z":true},"arr":[3,1],"b":2}`
	if string(got) != want {
		t.Fatalf("CanonicalJSON() = %s, want %s", got, want)
	}
	if strings.Contains(string(got), `\u003c`) {
		t.Fatalf("CanonicalJSON() escaped HTML: %s", got)
	}
}

func TestVerifyChain(t *testing.T) {
	first, err := Seal(validEvent(), 1, "")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	next := validEvent()
	next.Type = TypeCampaignContributed
	next.PayloadJSON = []byte(`{"contributor":"alice","amount":"4","total_raised":"4","contributor_total":"4"}`)
	second, err := Seal(next, 2, first.ChainHash)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	t.Run("intact chain passes", func(t *testing.T) {
		if err := VerifyChain([]Event{first, second}); err != nil {
			t.Fatalf("VerifyChain() error = %v", err)
		}
	})

	t.Run("tampered payload detected", func(t *testing.T) {
		tampered := second
		tampered.PayloadJSON = []byte(`{"contributor":"alice","amount":"400","total_raised":"400","contributor_total":"400"}`)
		if err := VerifyChain([]Event{first, tampered}); err == nil {
			t.Fatal("expected error for tampered payload, got nil")
		}
	})

	t.Run("gap in seq detected", func(t *testing.T) {
		if err := VerifyChain([]Event{first, first}); err == nil {
			t.Fatal("expected error for repeated seq, got nil")
		}
	})

	t.Run("broken link detected", func(t *testing.T) {
		broken := second
		broken.PrevHash = "0123456789abcdef0123456789abcdef"
		if err := VerifyChain([]Event{first, broken}); err == nil {
			t.Fatal("expected error for broken prev hash, got nil")
		}
	})
}
