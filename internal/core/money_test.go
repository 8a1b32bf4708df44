package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{8000, "80.00"},
		{1, "0.01"},
		{12345, "123.45"},
		{100, "1.00"},
		{-250, "-2.50"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := (Money{Cents: 8000}).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "80.00" {
		t.Fatalf("expected raw number 80.00, got %s", b)
	}

	var m Money
	if err := m.UnmarshalJSON([]byte("12.34")); err != nil || m.Cents != 1234 {
		t.Fatalf("number: got %d (err=%v)", m.Cents, err)
	}
	if err := m.UnmarshalJSON([]byte(`"12.34"`)); err != nil || m.Cents != 1234 {
		t.Fatalf("quoted: got %d (err=%v)", m.Cents, err)
	}
	if err := m.UnmarshalJSON([]byte(`"nope"`)); err == nil {
		t.Fatalf("expected error for non-decimal")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 5000}
	b := Money{Cents: 3000}
	if got := a.Add(b); got.Cents != 8000 {
		t.Fatalf("add: expected 8000, got %d", got.Cents)
	}
	if got := b.Sub(a); got.Cents != -2000 {
		t.Fatalf("sub: expected -2000, got %d", got.Cents)
	}
}
