package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/aiflownow/support-bot/internal/domain"
)

func TestFormatPendingTicket_TimezoneAndTruncation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) // 15:00 in Moscow
	tk := &domain.Ticket{
		ID:             3,
		ClientNickname: "sam",
		Question:       strings.Repeat("a", 500),
		CreatedAt:      created,
	}

	got := formatPendingTicket(tk, loc)
	if !strings.Contains(got, "15:00 01.06.2025") {
		t.Fatalf("time not in display timezone: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("a", 400)+"...") {
		t.Fatalf("question not truncated to preview length")
	}
	if strings.Contains(got, strings.Repeat("a", 401)) {
		t.Fatalf("question exceeded preview length")
	}
}

func TestFormatManagerList_Empty(t *testing.T) {
	if got := formatManagerList(nil); !strings.Contains(got, "No active managers") {
		t.Fatalf("got %q", got)
	}
}

func TestParseCallbackID(t *testing.T) {
	if id, okID := parseCallbackID("answer_42", cbPrefixAnswer); !okID || id != 42 {
		t.Fatalf("id = %d ok = %v", id, okID)
	}
	if _, okID := parseCallbackID("answer_xx", cbPrefixAnswer); okID {
		t.Fatalf("malformed id must not parse")
	}
	if _, okID := parseCallbackID("close_42", cbPrefixAnswer); okID {
		t.Fatalf("wrong prefix must not parse")
	}
}
