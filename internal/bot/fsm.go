package bot

import "sync"

// State enumerates the multi-step console conversations. Everything outside
// an explicit flow is StateIdle.
type State int

const (
	StateIdle State = iota
	// StateAwaitingManagerChatID: admin tapped "add manager", waiting for the
	// numeric chat id.
	StateAwaitingManagerChatID
	// StateAwaitingManagerNickname: chat id accepted, waiting for the display
	// nickname.
	StateAwaitingManagerNickname
	// StateAwaitingAnswer: manager tapped "answer" on a ticket, waiting for
	// the reply text.
	StateAwaitingAnswer
)

// Conversation is the per-staff-chat flow position plus the data carried
// between steps.
type Conversation struct {
	State State
	// TicketID is set while StateAwaitingAnswer.
	TicketID int64
	// PendingChatID is the candidate manager id carried from the chat-id step
	// to the nickname step.
	PendingChatID int64
}

// FSM is the in-memory conversation store for the manager console, keyed by
// staff chat id. State is process-local: a restart drops unfinished flows,
// which is acceptable because every flow restarts cleanly from the menu.
type FSM struct {
	mu     sync.Mutex
	byChat map[int64]Conversation
}

// NewFSM returns an empty conversation store.
func NewFSM() *FSM {
	return &FSM{byChat: make(map[int64]Conversation)}
}

// Get returns the conversation for chatID; the zero Conversation is idle.
func (f *FSM) Get(chatID int64) Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byChat[chatID]
}

// Set stores the conversation for chatID.
func (f *FSM) Set(chatID int64, conv Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byChat[chatID] = conv
}

// Clear resets chatID back to idle.
func (f *FSM) Clear(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byChat, chatID)
}
