package gateway

import (
	"context"

	"github.com/rahul/seif/internal/agent"
)

// Messenger defines the interface for communication gateways (Telegram, etc.)
type Messenger interface {
	// Start begins the message listening loop and returns when ctx is done
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// EngineFactory builds the engine for one task submitted from chatID. The
// prompter routes the run's questions back to that chat.
type EngineFactory func(chatID string, prompter agent.Prompter) *agent.Engine
