package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/services"
)

// ---- fakes ----

type fakeMessageSender struct {
	sent []struct {
		chatID int64
		text   string
	}
}

func (f *fakeMessageSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, struct {
		chatID int64
		text   string
	}{chatID, text})
	return nil
}

func (f *fakeMessageSender) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	return f.sent[len(f.sent)-1].text
}

type fakeIntake struct {
	submitErr error
	got       *services.Intake
}

func (f *fakeIntake) Submit(ctx context.Context, in services.Intake) (*domain.Ticket, error) {
	f.got = &in
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &domain.Ticket{ID: 5, ClientChatID: in.ChatID, ClientNickname: "sam", Question: strings.TrimSpace(in.Question)}, nil
}

type fakeAnnouncer struct {
	notified chan int64
}

func (f *fakeAnnouncer) NotifyNewTicket(ctx context.Context, t *domain.Ticket) {
	f.notified <- t.ID
}

func newClientBot(intake *fakeIntake, ann *fakeAnnouncer) (*ClientBot, *fakeMessageSender) {
	sender := &fakeMessageSender{}
	b := &ClientBot{Sender: sender, Tickets: intake, MaxQuestionLen: 1000}
	if ann != nil {
		b.Announcer = ann
	}
	return b, sender
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{UserName: "sam_tvls", FirstName: "Sam"},
	}}
}

func commandUpdate(chatID int64, cmd string) tgbotapi.Update {
	u := textUpdate(chatID, cmd)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return u
}

// ---- tests ----

func TestClientBot_Commands(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"/start", "Hello"},
		{"/help", "How it works"},
		{"/status", "up"},
		{"/unknown", "How it works"},
	}
	for _, tc := range tests {
		t.Run(tc.cmd, func(t *testing.T) {
			intake := &fakeIntake{}
			b, sender := newClientBot(intake, nil)
			b.handleUpdate(context.Background(), commandUpdate(1, tc.cmd))

			if intake.got != nil {
				t.Fatalf("commands must not create tickets")
			}
			if got := sender.lastText(t); !strings.Contains(got, tc.want) {
				t.Fatalf("reply = %q, want substring %q", got, tc.want)
			}
		})
	}
}

func TestClientBot_FreeTextCreatesTicket(t *testing.T) {
	intake := &fakeIntake{}
	ann := &fakeAnnouncer{notified: make(chan int64, 1)}
	b, sender := newClientBot(intake, ann)

	b.handleUpdate(context.Background(), textUpdate(42, "how much is shipping?"))

	if intake.got == nil {
		t.Fatalf("intake not called")
	}
	if intake.got.ChatID != 42 || intake.got.Username != "sam_tvls" || intake.got.FirstName != "Sam" {
		t.Fatalf("intake = %+v", intake.got)
	}
	if intake.got.Source != domain.SourceClientBot {
		t.Fatalf("source = %q", intake.got.Source)
	}

	reply := sender.lastText(t)
	if !strings.Contains(reply, "#5") || !strings.Contains(reply, "how much is shipping?") {
		t.Fatalf("confirmation = %q", reply)
	}

	select {
	case id := <-ann.notified:
		if id != 5 {
			t.Fatalf("announced ticket = %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out never fired")
	}
}

func TestClientBot_TooLongRejectionNamesLimit(t *testing.T) {
	intake := &fakeIntake{submitErr: services.ErrQuestionTooLong}
	b, sender := newClientBot(intake, nil)

	b.handleUpdate(context.Background(), textUpdate(1, strings.Repeat("x", 2000)))

	reply := sender.lastText(t)
	if !strings.Contains(reply, "1000") {
		t.Fatalf("rejection must embed the limit, got %q", reply)
	}
}

func TestClientBot_InternalErrorApology(t *testing.T) {
	intake := &fakeIntake{submitErr: errors.New("db down")}
	b, sender := newClientBot(intake, nil)

	b.handleUpdate(context.Background(), textUpdate(1, "hi"))

	if got := sender.lastText(t); !strings.Contains(got, "try again") {
		t.Fatalf("apology = %q", got)
	}
}

func TestClientBot_NonTextContentGetsHelp(t *testing.T) {
	intake := &fakeIntake{}
	b, sender := newClientBot(intake, nil)

	b.handleUpdate(context.Background(), textUpdate(1, ""))

	if intake.got != nil {
		t.Fatalf("empty content must not reach intake")
	}
	if got := sender.lastText(t); !strings.Contains(got, "How it works") {
		t.Fatalf("reply = %q", got)
	}
}

func TestClientBot_IgnoresNonMessageUpdates(t *testing.T) {
	b, sender := newClientBot(&fakeIntake{}, nil)
	b.handleUpdate(context.Background(), tgbotapi.Update{})
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be sent for empty updates")
	}
}

func TestHandleSafely_RecoversPanics(t *testing.T) {
	handleSafely(context.Background(), tgbotapi.Update{UpdateID: 1}, func(ctx context.Context, upd tgbotapi.Update) {
		panic("boom")
	})
	// Reaching here means the panic was contained.
}
