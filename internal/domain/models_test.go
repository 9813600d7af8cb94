package domain

import "testing"

func TestFallbackNickname(t *testing.T) {
	cases := []struct {
		username, first, last string
		want                  string
	}{
		{"sam_tvls", "Sam", "T", "sam_tvls"},
		{"  sam  ", "", "", "sam"},
		{"", "Sam", "Travels", "Sam Travels"},
		{"", "  Sam  ", "", "Sam"},
		{"", "", "Travels", "Travels"},
		{"", "", "", AnonymousNickname},
		{"", "   ", "  ", AnonymousNickname},
	}
	for _, c := range cases {
		if got := FallbackNickname(c.username, c.first, c.last); got != c.want {
			t.Fatalf("FallbackNickname(%q,%q,%q) = %q, want %q", c.username, c.first, c.last, got, c.want)
		}
	}
}

func TestTableNames(t *testing.T) {
	if (Ticket{}).TableName() != "tickets" {
		t.Fatalf("Ticket table = %q", Ticket{}.TableName())
	}
	if (Manager{}).TableName() != "managers" {
		t.Fatalf("Manager table = %q", Manager{}.TableName())
	}
}
