package server

import "testing"

func TestNewPacketCopiesPayload(t *testing.T) {
	buf := []byte("payload")
	p := newPacket(PacketReceive, nil, buf)
	buf[0] = 'X'
	if string(p.Data) != "payload" {
		t.Fatalf("packet aliases producer buffer: %q", p.Data)
	}

	if p := newPacket(PacketAccept, nil, nil); p.Data != nil {
		t.Fatalf("accept packet carries data: %v", p.Data)
	}
	if p := newPacket(PacketSend, nil, []byte{}); p.Data == nil || len(p.Data) != 0 {
		t.Fatalf("empty payload = %v, want empty non-nil", p.Data)
	}
}

func TestPacketTypeString(t *testing.T) {
	cases := map[PacketType]string{
		PacketAccept:  "accept",
		PacketClosed:  "closed",
		PacketReceive: "receive",
		PacketSend:    "send",
		PacketExit:    "exit",
		PacketType(0): "unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}
