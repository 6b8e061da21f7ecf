package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"calbot/internal/calendar"
	"calbot/internal/database"
	"calbot/pkg/models"
)

// State of one chat's enrollment dialog
type State int

const (
	StateIdle State = iota
	StateAwaitConsent
	StateAwaitUsername
	StateAwaitSecret
)

// Prompt tells the transport layer what to present next. Prompts carry no
// text; the Telegram layer owns the wording and keyboards.
type Prompt int

const (
	PromptNone Prompt = iota // Nothing to say (no session, or input out of place)
	PromptMenu               // Credentials already exist: update / list menu
	PromptConsent            // Ask whether to monitor the calendar
	PromptInstructions       // Consent given: show setup instructions
	PromptDeclined           // Consent declined, dialog over
	PromptAskUsername        // Ask for the Apple ID
	PromptAskSecret          // Ask for the app-specific password
	PromptVerifyFailed       // Connectivity check failed, back to username
	PromptEnrolled           // Credentials verified and saved
	PromptCancelled          // Session discarded on explicit cancel
)

// Abandoned sessions are evicted lazily on the next access; enrollment is
// rare and cheap to restart, so nothing survives a process restart either.
const sessionTTL = 30 * time.Minute

type session struct {
	state    State
	username string
	touched  time.Time
}

// Store is the subset of the database the machine needs
type Store interface {
	GetAccountByChatID(ctx context.Context, chatID int64) (*models.Account, error)
	CreateAccount(ctx context.Context, chatID int64) (*models.Account, error)
	UpsertCredentials(ctx context.Context, chatID int64, username, password, caldavURL string) error
}

// Machine drives the credential-collection dialog, one independent session
// per chat. Credentials are committed only after a verified round-trip
// against the calendar endpoint.
type Machine struct {
	store    Store
	gateway  calendar.Gateway
	endpoint string // Default CalDAV URL for new enrollments
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
	now      func() time.Time
}

// NewMachine creates an enrollment machine
func NewMachine(store Store, gateway calendar.Gateway, defaultEndpoint string, logger *slog.Logger) *Machine {
	return &Machine{
		store:    store,
		gateway:  gateway,
		endpoint: defaultEndpoint,
		logger:   logger.With("component", "enrollment"),
		sessions: make(map[int64]*session),
		now:      time.Now,
	}
}

// Start handles first contact. An account row is created on first contact;
// a chat that already holds credentials bypasses the flow and gets the
// menu instead.
func (m *Machine) Start(ctx context.Context, chatID int64) (Prompt, *models.Account, error) {
	account, err := m.store.GetAccountByChatID(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) {
		account, err = m.store.CreateAccount(ctx, chatID)
	}
	if err != nil {
		return PromptNone, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if account.Enrolled() {
		delete(m.sessions, chatID)
		return PromptMenu, account, nil
	}

	m.sessions[chatID] = &session{state: StateAwaitConsent, touched: m.now()}
	return PromptConsent, account, nil
}

// Consent handles the yes/no answer to the monitoring question
func (m *Machine) Consent(chatID int64, yes bool) Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessionLocked(chatID)
	if s == nil || s.state != StateAwaitConsent {
		return PromptNone
	}

	if !yes {
		delete(m.sessions, chatID)
		return PromptDeclined
	}

	s.state = StateAwaitUsername
	s.touched = m.now()
	return PromptInstructions
}

// BeginUpdate enters credential collection directly, used by the
// "update credentials" menu action of an already-enrolled chat.
func (m *Machine) BeginUpdate(chatID int64) Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[chatID] = &session{state: StateAwaitUsername, touched: m.now()}
	return PromptAskUsername
}

// Input routes a plain text message into the dialog
func (m *Machine) Input(ctx context.Context, chatID int64, text string) (Prompt, error) {
	text = strings.TrimSpace(text)

	m.mu.Lock()
	s := m.sessionLocked(chatID)
	if s == nil {
		m.mu.Unlock()
		return PromptNone, nil
	}

	switch s.state {
	case StateAwaitUsername:
		if text == "" {
			m.mu.Unlock()
			return PromptAskUsername, nil
		}
		s.username = text
		s.state = StateAwaitSecret
		s.touched = m.now()
		m.mu.Unlock()
		return PromptAskSecret, nil

	case StateAwaitSecret:
		username := s.username
		m.mu.Unlock()
		return m.verifyAndCommit(ctx, chatID, username, text)

	default:
		m.mu.Unlock()
		return PromptNone, nil
	}
}

// verifyAndCommit runs the live connectivity check and persists the
// credentials only if it passes. The gateway call happens outside the
// session lock; the state transition afterwards re-checks the session
// still exists (it may have been cancelled meanwhile).
func (m *Machine) verifyAndCommit(ctx context.Context, chatID int64, username, secret string) (Prompt, error) {
	creds := calendar.Credentials{Username: username, Password: secret, URL: m.endpoint}

	if err := m.gateway.Verify(ctx, creds); err != nil {
		m.logger.Warn("credential verification failed", "chat_id", chatID, "username", username, "error", err)

		m.mu.Lock()
		if s := m.sessionLocked(chatID); s != nil {
			s.state = StateAwaitUsername
			s.username = ""
			s.touched = m.now()
		}
		m.mu.Unlock()
		return PromptVerifyFailed, nil
	}

	if err := m.store.UpsertCredentials(ctx, chatID, username, secret, m.endpoint); err != nil {
		return PromptNone, err
	}

	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()

	m.logger.Info("calendar enrolled", "chat_id", chatID, "username", username)
	return PromptEnrolled, nil
}

// Cancel discards the session, whatever state it is in. No persistence
// side effect.
func (m *Machine) Cancel(chatID int64) Prompt {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
	return PromptCancelled
}

// StateOf returns the current dialog state for a chat
func (m *Machine) StateOf(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.sessionLocked(chatID); s != nil {
		return s.state
	}
	return StateIdle
}

// sessionLocked returns the live session for a chat, evicting it first if
// it has outlived the TTL. Callers hold m.mu.
func (m *Machine) sessionLocked(chatID int64) *session {
	s, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	if m.now().Sub(s.touched) > sessionTTL {
		delete(m.sessions, chatID)
		return nil
	}
	return s
}
