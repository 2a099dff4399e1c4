package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{"AED 250.00", 25000, true},
		{"1,234.50", 123450, true}, // thousands comma
		{"0", 0, true},
		{"0.00", 0, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-5", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseAmount(%q): unexpected error %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseAmount(%q): expected error, got %d", tc.in, got.Cents)
		}
		if tc.ok && got.Cents != tc.cents {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tc.in, got.Cents, tc.cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{25000, "250.00"},
		{5, "0.05"},
		{-1234, "-12.34"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Money{Cents: 123456}
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "1234.56" {
		t.Fatalf("marshal = %s, want 1234.56", data)
	}
	var back Money
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != m {
		t.Fatalf("round trip = %d, want %d", back.Cents, m.Cents)
	}

	var neg Money
	if err := neg.UnmarshalJSON([]byte("-12.50")); err != nil {
		t.Fatalf("unmarshal negative: %v", err)
	}
	if neg.Cents != -1250 {
		t.Fatalf("negative = %d, want -1250", neg.Cents)
	}
}

func TestMoneyUnmarshalExponent(t *testing.T) {
	tests := []struct {
		input string
		cents int64
		fails bool
	}{
		{input: "1e3", cents: 100000},
		{input: "1E3", cents: 100000},
		{input: "2.5e2", cents: 25000},
		{input: "-1e2", cents: -10000},
		{input: `"1.5e1"`, cents: 1500},
		{input: "1e400", fails: true},
		{input: "1e", fails: true},
	}
	for _, tt := range tests {
		var m Money
		err := m.UnmarshalJSON([]byte(tt.input))
		if tt.fails {
			if err == nil {
				t.Errorf("%s: expected error, got %d cents", tt.input, m.Cents)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.input, err)
			continue
		}
		if m.Cents != tt.cents {
			t.Errorf("%s = %d cents, want %d", tt.input, m.Cents, tt.cents)
		}
	}
}
