package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rahul/seif/internal/agent"
	"github.com/rahul/seif/internal/observability"
)

// Sender is the part of the bot API used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const helpText = `Send me a task in plain language and I will plan and run it in a browser.

/status - show running tasks
/cancel - stop the task running in this chat
/help - this message

While a task runs I may ask you to confirm a step (yes/no) or decide what to do after a failure (retry/skip/abort).`

// TelegramGateway accepts tasks from chats and runs each one with its own
// engine. At most one task runs per chat; while it runs, messages from that
// chat answer its questions.
type TelegramGateway struct {
	Bot       *tgbotapi.BotAPI
	Sender    Sender
	NewEngine EngineFactory
	Status    *observability.StatusBoard
	// Allowed restricts which chats may submit tasks. Empty allows all.
	Allowed map[int64]bool

	mu    sync.Mutex
	chats map[int64]*chatRun
	wg    sync.WaitGroup
}

type chatRun struct {
	task     string
	prompter *ChatPrompter
	cancel   context.CancelFunc
}

func NewTelegramGateway(token string, allowed []int64, newEngine EngineFactory, status *observability.StatusBoard) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	g := newGateway(bot, allowed, newEngine, status)
	g.Bot = bot
	return g, nil
}

func newGateway(sender Sender, allowed []int64, newEngine EngineFactory, status *observability.StatusBoard) *TelegramGateway {
	g := &TelegramGateway{
		Sender:    sender,
		NewEngine: newEngine,
		Status:    status,
		Allowed:   make(map[int64]bool),
		chats:     make(map[int64]*chatRun),
	}
	for _, id := range allowed {
		g.Allowed[id] = true
	}
	return g
}

func (tg *TelegramGateway) Start(ctx context.Context) error {
	if tg.Bot == nil {
		return fmt.Errorf("telegram bot is not configured")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)
	defer tg.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			tg.Stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			user := ""
			if update.Message.From != nil {
				user = update.Message.From.UserName
			}
			log.Printf("[%s] %s", user, update.Message.Text)
			tg.HandleMessage(ctx, update.Message.Chat.ID, update.Message.Text)
		}
	}
}

// HandleMessage routes one incoming chat message: a bot command, an answer
// to the chat's pending question, or a new task.
func (tg *TelegramGateway) HandleMessage(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(tg.Allowed) > 0 && !tg.Allowed[chatID] {
		log.Printf("Ignoring message from chat %d: not allowed", chatID)
		tg.reply(chatID, "This chat is not allowed to run tasks.")
		return
	}

	command := strings.ToLower(strings.Fields(text)[0])
	switch command {
	case "/start", "/help":
		tg.reply(chatID, helpText)
		return
	case "/status":
		tg.reply(chatID, tg.statusText())
		return
	case "/cancel":
		if run := tg.active(chatID); run != nil {
			tg.reply(chatID, "Cancelling: "+run.task)
			run.cancel()
		} else {
			tg.reply(chatID, "Nothing is running.")
		}
		return
	}

	tg.mu.Lock()
	if run, ok := tg.chats[chatID]; ok {
		tg.mu.Unlock()
		if !run.prompter.Deliver(text) {
			tg.reply(chatID, "A task is already running. Send /cancel to stop it.")
		}
		return
	}

	task := text
	if command == "/run" {
		task = strings.TrimSpace(text[len("/run"):])
	} else if strings.HasPrefix(command, "/") {
		tg.mu.Unlock()
		tg.reply(chatID, "Unknown command. Send /help for usage.")
		return
	}
	if task == "" {
		tg.mu.Unlock()
		tg.reply(chatID, "Usage: /run <task>")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	id := strconv.FormatInt(chatID, 10)
	run := &chatRun{
		task:     task,
		prompter: NewChatPrompter(func(t string) error { return tg.Send(id, t) }),
		cancel:   cancel,
	}
	tg.chats[chatID] = run
	tg.wg.Add(1)
	tg.mu.Unlock()

	go tg.runTask(runCtx, chatID, run)
}

func (tg *TelegramGateway) runTask(ctx context.Context, chatID int64, run *chatRun) {
	defer tg.wg.Done()
	defer func() {
		tg.mu.Lock()
		delete(tg.chats, chatID)
		tg.mu.Unlock()
		run.cancel()
	}()

	tg.reply(chatID, "🧠 Planning: "+run.task)
	engine := tg.NewEngine(strconv.FormatInt(chatID, 10), run.prompter)
	defer engine.Close()

	res := engine.Run(ctx, run.task)
	tg.Status.Remove(res.RunID)
	tg.reply(chatID, FormatResult(res))
}

func (tg *TelegramGateway) active(chatID int64) *chatRun {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.chats[chatID]
}

func (tg *TelegramGateway) statusText() string {
	runs := tg.Status.Snapshot()
	if len(runs) == 0 {
		return "No active runs."
	}
	var b strings.Builder
	b.WriteString("Active runs:\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "• %s [%s", r.Task, r.Phase)
		if r.Total > 0 {
			fmt.Fprintf(&b, " %d/%d", r.Step, r.Total)
		}
		b.WriteString("]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (tg *TelegramGateway) reply(chatID int64, text string) {
	if err := tg.Send(strconv.FormatInt(chatID, 10), text); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := int64(0)
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(id, text)
	_, err := tg.Sender.Send(msg)
	return err
}

// Stop cancels every running task and stops polling.
func (tg *TelegramGateway) Stop() error {
	tg.mu.Lock()
	for _, run := range tg.chats {
		run.cancel()
	}
	tg.mu.Unlock()
	if tg.Bot != nil {
		tg.Bot.StopReceivingUpdates()
	}
	return nil
}

// FormatResult renders a finished run as a chat message.
func FormatResult(res *agent.Result) string {
	var b strings.Builder
	switch {
	case res.DryRun:
		b.WriteString("📋 Plan (dry run)")
	case res.State == agent.StateCompleted:
		b.WriteString("✅ Task completed")
	default:
		b.WriteString("❌ Task aborted")
		if res.Cause != "" {
			fmt.Fprintf(&b, " (%s)", res.Cause)
		}
		if res.Err != nil {
			fmt.Fprintf(&b, ": %s", res.Err.Error())
		}
	}
	b.WriteString("\n")
	if len(res.Plan) > 0 {
		b.WriteString("\n")
		b.WriteString(res.Plan.Numbered())
		b.WriteString("\n")
	}
	if s := res.Summary; s.Total > 0 {
		fmt.Fprintf(&b, "\nSteps: %d ok, %d failed (%.1f%%)\n", s.Succeeded, s.Failed, s.SuccessRate)
	}
	fmt.Fprintf(&b, "Run ID: %s", res.RunID)
	return b.String()
}

var _ Messenger = (*TelegramGateway)(nil)
