package cursor

import "testing"

func TestEventCursorRoundTrip(t *testing.T) {
	in := EventCursor{CampaignID: 7, Seq: 42, FilterHash: HashFilter(`actor = "alice"`)}

	token, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	out, err := DecodeEvent(token)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if out != in {
		t.Fatalf("DecodeEvent() = %+v, want %+v", out, in)
	}
}

func TestCampaignCursorRoundTrip(t *testing.T) {
	token, err := EncodeCampaign(CampaignCursor{ID: 9})
	if err != nil {
		t.Fatalf("EncodeCampaign() error = %v", err)
	}
	out, err := DecodeCampaign(token)
	if err != nil {
		t.Fatalf("DecodeCampaign() error = %v", err)
	}
	if out.ID != 9 {
		t.Fatalf("ID = %d, want 9", out.ID)
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"", "not-base64!", "bm90LWpzb24"} {
		if _, err := DecodeEvent(token); err == nil {
			t.Fatalf("DecodeEvent(%q) error = nil, want an error", token)
		}
	}
}

func TestValidateFilterHash(t *testing.T) {
	c := EventCursor{CampaignID: 1, Seq: 1, FilterHash: HashFilter("campaign_id = 1")}

	if err := ValidateFilterHash(c, "campaign_id = 1"); err != nil {
		t.Fatalf("ValidateFilterHash(same filter) error = %v", err)
	}
	if err := ValidateFilterHash(c, "campaign_id = 2"); err == nil {
		t.Fatal("ValidateFilterHash(changed filter) error = nil, want an error")
	}
	if err := ValidateFilterHash(EventCursor{}, ""); err != nil {
		t.Fatalf("ValidateFilterHash(no filter) error = %v", err)
	}
}
