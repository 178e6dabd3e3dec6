package transport

import "testing"

func TestParseConnectionString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Endpoint
	}{
		{"listening", "5000", Endpoint{Mode: ModeListening, Port: 5000}},
		{"multicast", "224.0.1.0:5000", Endpoint{Mode: ModeMulticast, Host: "224.0.1.0", Port: 5000}},
		{"communicating host", "atc-301422002:5000", Endpoint{Mode: ModeCommunicating, Host: "atc-301422002", Port: 5000}},
		{"communicating ip", "192.168.0.1:5000", Endpoint{Mode: ModeCommunicating, Host: "192.168.0.1", Port: 5000}},
		{"firewall", "atc-301422002:5000:fw", Endpoint{Mode: ModeFirewall, Host: "atc-301422002", Port: 5000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseConnectionString(tc.in)
			if err != nil {
				t.Fatalf("ParseConnectionString(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseConnectionString(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseConnectionStringRejectsBadSuffix(t *testing.T) {
	_, err := ParseConnectionString("atc-301422002:5000:bogus")
	if err == nil {
		t.Fatal("expected error for invalid suffix")
	}
}

func TestParseConnectionStringRejectsTooManyParts(t *testing.T) {
	_, err := ParseConnectionString("a:b:c:d")
	if err == nil {
		t.Fatal("expected error for too many parts")
	}
}

func TestParseConnectionStringRejectsNonNumericPort(t *testing.T) {
	_, err := ParseConnectionString("notaport")
	if err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
