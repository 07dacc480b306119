package wire

import "testing"

func TestParseCarRegister(t *testing.T) {
	m, err := ParseCarRegister("CAR Alpha 1 4")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "Alpha" || m.Lo.String() != "1" || m.Hi.String() != "4" {
		t.Errorf("got %+v", m)
	}
	if _, err := ParseCarRegister("CAR Alpha 4 1"); err == nil {
		t.Errorf("expected error for lo > hi")
	}
}

func TestParseStatus(t *testing.T) {
	m, err := ParseStatus("STATUS Closed B2 3")
	if err != nil {
		t.Fatal(err)
	}
	if m.State != Closed || m.Current.String() != "B2" || m.Destination.String() != "3" {
		t.Errorf("got %+v", m)
	}
	if _, err := ParseStatus("STATUS Bogus 1 1"); err == nil {
		t.Errorf("expected error for invalid state")
	}
}

func TestParseCarReply(t *testing.T) {
	m, err := ParseCarReply("CAR Gamma")
	if err != nil || !m.Available || m.Name != "Gamma" {
		t.Errorf("got %+v, err %v", m, err)
	}
	m, err = ParseCarReply("UNAVAILABLE")
	if err != nil || m.Available {
		t.Errorf("got %+v, err %v", m, err)
	}
}

func TestPrefix(t *testing.T) {
	if Prefix("CALL 1 3") != "CALL" {
		t.Errorf("expected CALL")
	}
	if Prefix("EMERGENCY") != "EMERGENCY" {
		t.Errorf("expected EMERGENCY")
	}
}
