package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/menu"
)

func TestReactionHub_DeliversToSubscribers(t *testing.T) {
	t.Parallel()
	h := NewReactionHub()
	h.SetSelf("bot")

	var got []menu.Input
	cancel := h.Subscribe("m1", func(in menu.Input) { got = append(got, in) })

	h.OnReactionAdd(nil, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		MessageID: "m1", UserID: "u1", Emoji: discordgo.Emoji{Name: "⏯️"},
	}})
	h.Deliver("m1", "⏯️", "bot")
	h.Deliver("m2", "⏯️", "u1")

	if len(got) != 1 {
		t.Fatalf("got %d inputs, want 1: %+v", len(got), got)
	}
	if got[0] != (menu.Input{MessageID: "m1", Symbol: "⏯️", ActorID: "u1"}) {
		t.Errorf("input = %+v", got[0])
	}

	cancel()
	cancel()
	h.Deliver("m1", "⏯️", "u1")
	if len(got) != 1 {
		t.Error("delivered after cancel")
	}
	if h.Subscriptions() != 0 {
		t.Errorf("Subscriptions() = %d, want 0", h.Subscriptions())
	}
}

func TestReactionHub_NilReaction(t *testing.T) {
	t.Parallel()
	h := NewReactionHub()
	h.OnReactionAdd(nil, &discordgo.MessageReactionAdd{})
}
