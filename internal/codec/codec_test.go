package codec

import (
	"encoding/json"
	"testing"

	"partyroom/internal/domain"
)

func TestDecodeOp_ExtractsDiscriminant(t *testing.T) {
	op, err := DecodeOp([]byte(`{"op":"READY","ready":true}`))
	if err != nil {
		t.Fatalf("DecodeOp: %v", err)
	}
	if op != domain.OpReady {
		t.Fatalf("want READY, got %s", op)
	}
}

func TestDecodeOp_RejectsMalformedJSON(t *testing.T) {
	if _, err := DecodeOp([]byte(`not json`)); err != domain.ErrInvalidMessage {
		t.Fatalf("want ErrInvalidMessage, got %v", err)
	}
}

func TestDecodeOp_RejectsMissingOp(t *testing.T) {
	if _, err := DecodeOp([]byte(`{"ready":true}`)); err != domain.ErrInvalidMessage {
		t.Fatalf("want ErrInvalidMessage, got %v", err)
	}
}

func TestDecodeJoin_ParsesFields(t *testing.T) {
	in, err := DecodeJoin([]byte(`{"op":"JOIN","token":"tok","name":"Alice","avatarId":3}`))
	if err != nil {
		t.Fatalf("DecodeJoin: %v", err)
	}
	if in.Token != "tok" || in.Name != "Alice" || in.AvatarID != 3 {
		t.Fatalf("unexpected decode: %+v", in)
	}
}

func TestDecodeDealerSet_ParsesComposition(t *testing.T) {
	in, err := DecodeDealerSet([]byte(`{"op":"DEALER_SET","composition":["SAFE","DOOM","SAFE"]}`))
	if err != nil {
		t.Fatalf("DecodeDealerSet: %v", err)
	}
	want := []domain.CardType{domain.CardSafe, domain.CardDoom, domain.CardSafe}
	if len(in.Composition) != len(want) {
		t.Fatalf("want %v, got %v", want, in.Composition)
	}
	for i := range want {
		if in.Composition[i] != want[i] {
			t.Fatalf("want %v, got %v", want, in.Composition)
		}
	}
}

func TestDecodeDealerPreview_NilCardTypeClearsPreview(t *testing.T) {
	in, err := DecodeDealerPreview([]byte(`{"op":"DEALER_PREVIEW","seat":1,"cardType":null}`))
	if err != nil {
		t.Fatalf("DecodeDealerPreview: %v", err)
	}
	if in.CardType != nil {
		t.Fatalf("want nil CardType, got %v", *in.CardType)
	}
	if in.Seat != 1 {
		t.Fatalf("want seat 1, got %d", in.Seat)
	}
}

func TestDecodeUpdateSettings_Malformed(t *testing.T) {
	if _, err := DecodeUpdateSettings([]byte(`{not json`)); err != domain.ErrInvalidMessage {
		t.Fatalf("want ErrInvalidMessage, got %v", err)
	}
}

func TestEncode_FlattensPayloadWithOpDiscriminant(t *testing.T) {
	raw, err := Encode(domain.OpReveal, domain.RevealPayload{Seat: 2, CardType: domain.CardSafe})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal encoded frame: %v", err)
	}
	if fields["op"] != string(domain.OpReveal) {
		t.Fatalf("want op REVEAL in flattened frame, got %v", fields["op"])
	}
	if fields["seat"] != float64(2) {
		t.Fatalf("want seat 2, got %v", fields["seat"])
	}
	if fields["cardType"] != string(domain.CardSafe) {
		t.Fatalf("want cardType SAFE, got %v", fields["cardType"])
	}
}

func TestEncode_NilPayloadStillCarriesOp(t *testing.T) {
	raw, err := Encode(domain.OpPong, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["op"] != string(domain.OpPong) {
		t.Fatalf("want op PONG, got %v", fields["op"])
	}
}
