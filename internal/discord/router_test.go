package discord

import (
	"context"
	"slices"
	"testing"

	"github.com/bwmarrin/discordgo"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/cadence/internal/discord/mock"
	"github.com/MrWong99/cadence/internal/observe"
)

func command(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func noop(*discordgo.Session, *discordgo.InteractionCreate) {}

func TestCommandRouter_Definitions(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	queue := &discordgo.ApplicationCommand{Name: "queue"}
	r.RegisterCommand("play", &discordgo.ApplicationCommand{Name: "play"}, noop)
	r.RegisterCommand("queue", queue, noop)
	r.RegisterHandler("queue/show", noop)
	r.RegisterHandler("queue/clear", noop)

	replacement := &discordgo.ApplicationCommand{Name: "play", Description: "v2"}
	r.RegisterCommand("play", replacement, noop)

	cmds := r.ApplicationCommands()
	if len(cmds) != 2 {
		t.Fatalf("got %d definitions, want 2", len(cmds))
	}
	if cmds[0] != replacement || cmds[1] != queue {
		t.Errorf("definitions = [%s %s], want the replaced play then queue", cmds[0].Name, cmds[1].Name)
	}

	want := []string{"play", "queue", "queue/clear", "queue/show"}
	if got := r.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestInteractionKey(t *testing.T) {
	t.Parallel()

	opt := func(name string, typ discordgo.ApplicationCommandOptionType, sub ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
		return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Options: sub}
	}
	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{"bare", discordgo.ApplicationCommandInteractionData{Name: "skip"}, "skip"},
		{
			"value option",
			discordgo.ApplicationCommandInteractionData{Name: "volume", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				opt("value", discordgo.ApplicationCommandOptionInteger),
			}},
			"volume",
		},
		{
			"subcommand",
			discordgo.ApplicationCommandInteractionData{Name: "queue", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				opt("remove", discordgo.ApplicationCommandOptionSubCommand, opt("position", discordgo.ApplicationCommandOptionInteger)),
			}},
			"queue/remove",
		},
		{
			"group",
			discordgo.ApplicationCommandInteractionData{Name: "admin", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				opt("nodes", discordgo.ApplicationCommandOptionSubCommandGroup, opt("list", discordgo.ApplicationCommandOptionSubCommand)),
			}},
			"admin/nodes/list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := interactionKey(tt.data); got != tt.want {
				t.Errorf("interactionKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandRouter_Serve(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	r := NewCommandRouter(WithRouterMetrics(m))
	var ran []string
	r.RegisterHandler("queue/show", func(*discordgo.Session, *discordgo.InteractionCreate) { ran = append(ran, "queue/show") })
	r.RegisterCommand("boom", &discordgo.ApplicationCommand{Name: "boom"}, func(*discordgo.Session, *discordgo.InteractionCreate) {
		panic("kaboom")
	})
	r.RegisterAutocomplete("equalizer", func(*discordgo.Session, *discordgo.InteractionCreate) { ran = append(ran, "equalizer") })

	resp := &mock.InteractionResponder{}

	r.serve(resp, nil, command("queue", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "show", Type: discordgo.ApplicationCommandOptionSubCommand,
	}))
	if !slices.Equal(ran, []string{"queue/show"}) || len(resp.Responses) != 0 {
		t.Fatalf("ran %v with %d router replies", ran, len(resp.Responses))
	}

	r.serve(resp, nil, command("missing"))
	if got := resp.LastResponse(); got == nil || got.Data.Content != "Unknown command." {
		t.Errorf("unknown command reply = %+v", got)
	}

	r.serve(resp, nil, command("boom"))
	if got := resp.LastResponse(); got == nil || got.Data.Content != msgInternalError || got.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Errorf("panic reply = %+v", got)
	}

	auto := command("equalizer")
	auto.Type = discordgo.InteractionApplicationCommandAutocomplete
	r.serve(resp, nil, auto)
	auto = command("volume")
	auto.Type = discordgo.InteractionApplicationCommandAutocomplete
	r.serve(resp, nil, auto)
	if got := resp.LastResponse(); got.Type != discordgo.InteractionApplicationCommandAutocompleteResult || len(got.Data.Choices) != 0 {
		t.Errorf("missing autocomplete reply = %+v", got)
	}
	if !slices.Equal(ran, []string{"queue/show", "equalizer"}) {
		t.Errorf("ran %v", ran)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "cadence.interactions" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				cmd, _ := dp.Attributes.Value("command")
				result, _ := dp.Attributes.Value("result")
				got[cmd.AsString()+":"+result.AsString()] += dp.Value
			}
		}
	}
	want := map[string]int64{
		"queue/show:ok":   1,
		"missing:unknown": 1,
		"boom:panic":      1,
		"equalizer:ok":    1,
		"volume:unknown":  1,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("interactions[%s] = %d, want %d (all: %v)", k, got[k], v, got)
		}
	}
}
