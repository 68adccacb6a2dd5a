package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	// DiscordPrefix marks chat ids that belong to Discord channels.
	DiscordPrefix = "discord:"
	discordLimit  = 2000
)

type DiscordGateway struct {
	Session *discordgo.Session
	Handler Handler
}

func NewDiscordGateway(token string, handler Handler) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return &DiscordGateway{Session: s, Handler: handler}, nil
}

// Start opens the websocket and serves messages until ctx is done.
func (dg *DiscordGateway) Start(ctx context.Context) error {
	remove := dg.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		log.Printf("[%s] %s", m.Author.Username, m.Content)
		go dg.reply(ctx, m.ChannelID, m.Content)
	})
	defer remove()

	if err := dg.Session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	if dg.Session.State != nil && dg.Session.State.User != nil {
		log.Printf("Authorized on account %s", dg.Session.State.User.Username)
	}

	<-ctx.Done()
	return dg.Stop()
}

func (dg *DiscordGateway) reply(ctx context.Context, channelID, text string) {
	if err := dg.Session.ChannelTyping(channelID); err != nil {
		log.Printf("Error sending typing action: %v", err)
	}
	response := dg.Handler.Handle(ctx, DiscordPrefix+channelID, text)
	if err := dg.Send(DiscordPrefix+channelID, response); err != nil {
		log.Printf("Error sending reply: %v", err)
	}
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	channelID := strings.TrimPrefix(chatID, DiscordPrefix)
	if channelID == "" {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}
	for _, part := range chunks(text, discordLimit) {
		if _, err := dg.Session.ChannelMessageSend(channelID, part); err != nil {
			return err
		}
	}
	return nil
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
