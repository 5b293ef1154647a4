package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/menu"
)

// MessageAPI is the part of the Discord REST API menus use.
// *discordgo.Session implements it.
type MessageAPI interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
}

// EmbedRenderer renders menu views as message embeds and menu controls as
// reactions.
type EmbedRenderer struct {
	api MessageAPI
}

// NewEmbedRenderer creates a renderer on api.
func NewEmbedRenderer(api MessageAPI) *EmbedRenderer {
	return &EmbedRenderer{api: api}
}

// Send implements [menu.Renderer].
func (r *EmbedRenderer) Send(ctx context.Context, channelID string, v menu.View) (menu.Message, error) {
	m, err := r.api.ChannelMessageSendEmbed(channelID, Embed(v), discordgo.WithContext(ctx))
	if err != nil {
		return menu.Message{}, fmt.Errorf("discord: send to %s: %w", channelID, classify(err))
	}
	return menu.Message{ChannelID: channelID, ID: m.ID}, nil
}

// Edit implements [menu.Renderer].
func (r *EmbedRenderer) Edit(ctx context.Context, msg menu.Message, v menu.View) error {
	if _, err := r.api.ChannelMessageEditEmbed(msg.ChannelID, msg.ID, Embed(v), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: edit %s: %w", msg.ID, classify(err))
	}
	return nil
}

// Delete implements [menu.Renderer].
func (r *EmbedRenderer) Delete(ctx context.Context, msg menu.Message) error {
	if err := r.api.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete %s: %w", msg.ID, classify(err))
	}
	return nil
}

// AddControls implements [menu.Renderer]. Reactions are added one at a time
// so they appear in order; a cancelled ctx stops early.
func (r *EmbedRenderer) AddControls(ctx context.Context, msg menu.Message, symbols []string) error {
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.api.MessageReactionAdd(msg.ChannelID, msg.ID, sym, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: react %s on %s: %w", sym, msg.ID, classify(err))
		}
	}
	return nil
}

// ClearControls implements [menu.Renderer].
func (r *EmbedRenderer) ClearControls(ctx context.Context, msg menu.Message) error {
	if err := r.api.MessageReactionsRemoveAll(msg.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: clear reactions on %s: %w", msg.ID, classify(err))
	}
	return nil
}

// RemoveInput implements [menu.Renderer].
func (r *EmbedRenderer) RemoveInput(ctx context.Context, msg menu.Message, symbol, actorID string) error {
	if err := r.api.MessageReactionRemove(msg.ChannelID, msg.ID, symbol, actorID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: remove reaction %s on %s: %w", symbol, msg.ID, classify(err))
	}
	return nil
}

// classify marks the errors Discord returns for deleted messages and missing
// permissions as [menu.ErrMessageGone].
func classify(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return fmt.Errorf("%w: %w", menu.ErrMessageGone, err)
		}
	}
	return err
}

// Embed converts a menu view into a Discord embed.
func Embed(v menu.View) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       v.Title,
		Description: v.Description,
		URL:         v.URL,
		Color:       v.Color,
	}
	if v.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: v.Thumbnail}
	}
	if v.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: v.Footer}
	}
	for _, f := range v.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}

// Compile-time interface assertions.
var (
	_ menu.Renderer = (*EmbedRenderer)(nil)
	_ MessageAPI    = (*discordgo.Session)(nil)
	_ Responder     = (*discordgo.Session)(nil)
)
