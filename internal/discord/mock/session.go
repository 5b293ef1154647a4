// Package mock provides test doubles for the Discord REST surface used by
// the discord package: interaction responses and message/reaction calls.
//
// All mocks are safe for concurrent use.
package mock

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ─── InteractionResponder ─────────────────────────────────────────────────────

// InteractionResponder records interaction responses for test assertions.
type InteractionResponder struct {
	mu sync.Mutex

	// Responses records all InteractionRespond calls.
	Responses []*discordgo.InteractionResponse

	// FollowUps records all FollowupMessageCreate calls.
	FollowUps []*discordgo.WebhookParams

	// Err is returned by InteractionRespond and FollowupMessageCreate
	// when non-nil, allowing error injection.
	Err error
}

// InteractionRespond records the response and returns the configured error.
func (m *InteractionResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	return m.Err
}

// FollowupMessageCreate records the follow-up and returns a stub message.
func (m *InteractionResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowUps = append(m.FollowUps, params)
	if m.Err != nil {
		return nil, m.Err
	}
	return &discordgo.Message{ID: "mock-followup"}, nil
}

// LastResponse returns the most recently recorded response, or nil.
func (m *InteractionResponder) LastResponse() *discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// LastFollowUp returns the most recently recorded follow-up, or nil.
func (m *InteractionResponder) LastFollowUp() *discordgo.WebhookParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.FollowUps) == 0 {
		return nil
	}
	return m.FollowUps[len(m.FollowUps)-1]
}

// Reset clears all recorded interactions and errors.
func (m *InteractionResponder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = nil
	m.FollowUps = nil
	m.Err = nil
}

// ─── MessageAPI ───────────────────────────────────────────────────────────────

// Reaction is one recorded reaction call.
type Reaction struct {
	MessageID string
	Emoji     string
	UserID    string
}

// MessageAPI records message and reaction calls. Messages are numbered
// "m1", "m2", ... in send order.
type MessageAPI struct {
	mu sync.Mutex

	// Err, when set, is returned by every call.
	Err error

	// Sent and Edited record embeds by message ID.
	Sent   map[string]*discordgo.MessageEmbed
	Edited map[string][]*discordgo.MessageEmbed

	// Deleted records deleted message IDs.
	Deleted []string

	// Added and Removed record reaction calls.
	Added   []Reaction
	Removed []Reaction

	// Cleared records message IDs whose reactions were removed.
	Cleared []string

	next int
}

// NotFound returns a REST error with status 404, as Discord sends for
// deleted messages.
func NotFound() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: "Unknown Message"},
	}
}

// ChannelMessageSendEmbed records a sent embed.
func (m *MessageAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Sent == nil {
		m.Sent = make(map[string]*discordgo.MessageEmbed)
	}
	m.next++
	id := fmt.Sprintf("m%d", m.next)
	m.Sent[id] = embed
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

// ChannelMessageEditEmbed records an edit.
func (m *MessageAPI) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Edited == nil {
		m.Edited = make(map[string][]*discordgo.MessageEmbed)
	}
	m.Edited[messageID] = append(m.Edited[messageID], embed)
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

// ChannelMessageDelete records a deletion.
func (m *MessageAPI) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, messageID)
	return nil
}

// MessageReactionAdd records an added reaction.
func (m *MessageAPI) MessageReactionAdd(_, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Added = append(m.Added, Reaction{MessageID: messageID, Emoji: emojiID})
	return nil
}

// MessageReactionRemove records a removed reaction.
func (m *MessageAPI) MessageReactionRemove(_, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Removed = append(m.Removed, Reaction{MessageID: messageID, Emoji: emojiID, UserID: userID})
	return nil
}

// MessageReactionsRemoveAll records a cleared message.
func (m *MessageAPI) MessageReactionsRemoveAll(_, messageID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Cleared = append(m.Cleared, messageID)
	return nil
}
