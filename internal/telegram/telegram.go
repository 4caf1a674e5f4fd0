package telegram

import (
	"fmt"
	"strings"
	"sync"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/pkg/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
)

// MAX_MESSAGE_LEN is the Bot API limit for one text message.
const MAX_MESSAGE_LEN = 4096

var (
	botOnce sync.Once
	bot     *tgbotapi.BotAPI
	botErr  error

	senderMu sync.RWMutex
	sender   = sendToBot
)

func getBot() (*tgbotapi.BotAPI, error) {
	botOnce.Do(func() {
		cfg := config.GetConfig()
		if cfg.TELEGRAM.BotToken == "" {
			botErr = errors.New("TELEGRAM.BotToken is not set")
			return
		}
		bot, botErr = tgbotapi.NewBotAPI(cfg.TELEGRAM.BotToken)
		if botErr != nil {
			botErr = errors.Wrap(botErr, "failed in tgbotapi.NewBotAPI")
			return
		}
		bot.Debug = cfg.TELEGRAM.Debug == 1
	})
	return bot, botErr
}

func sendToBot(text string) error {
	b, err := getBot()
	if err != nil {
		return err
	}
	cfg := config.GetConfig()
	for _, part := range split(text, MAX_MESSAGE_LEN) {
		msg := tgbotapi.NewMessage(cfg.TELEGRAM.ChatID, part)
		if _, err := b.Send(msg); err != nil {
			return errors.Wrap(err, "failed in bot.Send")
		}
	}
	return nil
}

// split cuts text into chunks of at most size bytes, preferring line breaks.
func split(text string, size int) []string {
	var parts []string
	for len(text) > size {
		cut := strings.LastIndex(text[:size], "\n")
		if cut <= 0 {
			cut = size
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// SetSender replaces how messages are delivered and returns a func restoring it.
func SetSender(fn func(text string) error) (reset func()) {
	senderMu.Lock()
	defer senderMu.Unlock()
	previous := sender
	sender = fn
	return func() {
		senderMu.Lock()
		sender = previous
		senderMu.Unlock()
	}
}

func SendMessage(text string) error {
	senderMu.RLock()
	fn := sender
	senderMu.RUnlock()
	return fn(text)
}

// SendMessageToTelegramWithLogError sends text and only logs a failure.
func SendMessageToTelegramWithLogError(text string) {
	logger := logging.GetLogger()
	if err := SendMessage(text); err != nil {
		logger.Errorf("failed telegram.SendMessage(), error: %v", err)
	}
}

// Command answers one bot command.
type Command func(args string) string

// BotStart polls updates and answers the registered commands.
func BotStart(commands map[string]Command) {
	logger := logging.GetLogger()
	logger.Info("Start BotStart")
	defer logger.Info("End BotStart")

	b, err := getBot()
	if err != nil {
		logger.Errorf("failed in getBot(), error: %v", err)
		return
	}
	logger.Infof("Authorized on account %s", b.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.GetUpdatesChan(u)
	if err != nil {
		logger.Errorf("failed in GetUpdatesChan(), error: %v", err)
		return
	}

	cfg := config.GetConfig()
	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		if update.Message.Chat.ID != cfg.TELEGRAM.ChatID {
			logger.Infof("Command from unknown chat %d ignored", update.Message.Chat.ID)
			continue
		}
		var reply string
		if command, ok := commands[update.Message.Command()]; ok {
			reply = command(update.Message.CommandArguments())
		} else {
			reply = fmt.Sprintf("Unknown command /%s", update.Message.Command())
		}
		for _, part := range split(reply, MAX_MESSAGE_LEN) {
			if _, err := b.Send(tgbotapi.NewMessage(update.Message.Chat.ID, part)); err != nil {
				logger.Errorf("failed bot.Send(), error: %v", err)
			}
		}
	}
}
