package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages longer than this.
const telegramLimit = 4096

type TelegramGateway struct {
	Bot     *tgbotapi.BotAPI
	Handler Handler
}

func NewTelegramGateway(token string, handler Handler) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:     bot,
		Handler: handler,
	}, nil
}

func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			tg.Bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

			// Runs can take a while; keep receiving updates meanwhile.
			go tg.reply(ctx, update.Message.Chat.ID, update.Message.Text)
		}
	}
}

func (tg *TelegramGateway) reply(ctx context.Context, chatID int64, text string) {
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := tg.Bot.Request(typing); err != nil {
		log.Printf("Error sending typing action: %v", err)
	}

	response := tg.Handler.Handle(ctx, strconv.FormatInt(chatID, 10), text)
	for _, part := range chunks(response, telegramLimit) {
		if _, err := tg.Bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			log.Printf("Error sending reply: %v", err)
			return
		}
	}
}

// Send delivers a proactive message. Markdown is tried first; text the
// Markdown parser rejects is resent verbatim.
func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	for _, part := range chunks(text, telegramLimit) {
		msg := tgbotapi.NewMessage(id, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := tg.Bot.Send(msg); err != nil {
			msg.ParseMode = ""
			if _, err := tg.Bot.Send(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
