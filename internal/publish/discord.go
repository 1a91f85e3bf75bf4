package publish

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Announcer posts an embed about a freshly published episode to a Discord
// channel. Announcing is a secondary distribution: failures are reported as
// warnings, never as run failures.
type Announcer struct {
	session   *discordgo.Session
	channelID string
}

func NewAnnouncer(botToken, channelID string) (*Announcer, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token cannot be empty")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord channel id cannot be empty")
	}

	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &Announcer{session: session, channelID: channelID}, nil
}

// Announce posts the episode embed and returns the message ID.
func (a *Announcer) Announce(meta EpisodeMeta) (string, error) {
	embed := &discordgo.MessageEmbed{
		Title:       meta.Title,
		Description: meta.ScriptPreview,
		Color:       0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: fmt.Sprintf("%.1f min", meta.DurationMinutes), Inline: true},
			{Name: "Words", Value: fmt.Sprintf("%d", meta.WordCount), Inline: true},
			{Name: "File", Value: meta.FileName, Inline: false},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "briefcast"},
		Timestamp: meta.PublishedAt.Format(time.RFC3339),
	}

	msg, err := a.session.ChannelMessageSendEmbed(a.channelID, embed)
	if err != nil {
		return "", fmt.Errorf("failed to announce episode: %w", err)
	}

	slog.Info("Announced episode", "channel", a.channelID, "message", msg.ID)
	return msg.ID, nil
}
