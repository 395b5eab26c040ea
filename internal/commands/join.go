package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jheehg/webrtc-learning/internal/config"
	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/negotiation"
	"github.com/jheehg/webrtc-learning/internal/orchestrator"
	"github.com/jheehg/webrtc-learning/internal/protocol"
	"github.com/jheehg/webrtc-learning/internal/roomname"
	"github.com/jheehg/webrtc-learning/internal/rtc"
	"github.com/jheehg/webrtc-learning/internal/transport"
	"github.com/jheehg/webrtc-learning/internal/ui"
)

// shutdownWait bounds how long leaving waits for the run loop to finish.
const shutdownWait = 2 * time.Second

var (
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagRandom   bool
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a call room",
	Long: `Join a room on the signaling server and start a call with the other member.

The first member of a room makes the offer; everyone joining later answers.
When the other member leaves you become the one who offers to the next.

Examples:
  roomcall join demo
  roomcall join --random
  roomcall join --server wss://call.example.com/ws --turn turn.example.com --relay demo`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Options{
			STUNServers: flagSTUN,
			TURNServer:  flagTURN,
			TURNUser:    flagTURNUser,
			TURNPass:    flagTURNPass,
			ForceRelay:  flagRelay,
		})
		if err != nil {
			return err
		}

		room, err := resolveRoom(cmd.Context(), cfg, args, flagRandom)
		if err != nil {
			return err
		}
		return joinRoom(cmd.Context(), cfg, room)
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "comma separated STUN URLs (env STUN_SERVERS)")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN host or comma separated turn: URLs (env TURN_SERVER)")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	joinCmd.Flags().BoolVar(&flagRelay, "relay", false, "only use TURN relay candidates (env FORCE_RELAY)")
	joinCmd.Flags().BoolVarP(&flagRandom, "random", "r", false, "join a new room with a random memorable name")
	rootCmd.AddCommand(joinCmd)
}

// resolveRoom picks the room name from the arguments or generates one that
// is not live on the server.
func resolveRoom(ctx context.Context, cfg *config.Config, args []string, random bool) (string, error) {
	if random {
		if len(args) > 0 {
			return "", errors.New("--random does not take a room name")
		}

		live := map[string]bool{}
		rooms, err := fetchRooms(ctx, cfg)
		if err != nil {
			slog.Debug("could not list rooms, name clash check skipped", "error", err)
		}
		for _, r := range rooms {
			live[r.Name] = true
		}
		return roomname.Generate(func(name string) bool { return live[name] })
	}

	if len(args) == 0 {
		return "", errors.New("room name required (or use --random)")
	}
	return args[0], orchestrator.ValidateRoomName(args[0])
}

func joinRoom(ctx context.Context, cfg *config.Config, room string) error {
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return err
	}

	sp := ui.NewConnectionSpinner("Connecting to " + cfg.ServerURL)
	sp.Start()
	client := transport.NewClient(cfg.ServerURL, codec)
	if err := client.Connect(ctx); err != nil {
		sp.Error("Could not reach the signaling server")
		return err
	}
	defer client.Close()
	sp.Success("Connected to signaling server")

	ice := cfg.ICEConfig()
	if !ice.ForceRelay && len(ice.TURNServers) > 0 && rtc.RestrictedNetwork() {
		ui.PrintWarning("VPN or CGNAT detected, using TURN relay only")
		ice.ForceRelay = true
	}
	fmt.Println(ui.ICEServersView(ice.STUNServers, ice.TURNServers, ice.ForceRelay))
	fmt.Println()

	api, err := rtc.NewAPI()
	if err != nil {
		return err
	}
	newPeer := func() (negotiation.Capability, error) {
		return rtc.NewPeerConnection(api, ice)
	}

	// Sample tracks carry silence until a capture device is plugged in.
	source := media.SourceFunc(func(actx context.Context, c media.Constraints) (*media.Stream, error) {
		stream, err := media.SampleSource{}.Acquire(actx, c)
		if err == nil {
			go media.FeedSilence(ctx, stream)
		}
		return stream, err
	})

	orch := orchestrator.New(client, newPeer, media.NewEndpoint(source, cfg.Media))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- orch.Run(runCtx) }()

	if err := orch.Join(room); err != nil {
		return err
	}

	model := ui.NewRoomModel(orch, orch.Notices())
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	if err := orch.Leave(); err != nil {
		slog.Debug("leave failed", "error", err)
	}
	cancel()

	select {
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, orchestrator.ErrChannelClosed) {
			return err
		}
	case <-time.After(shutdownWait):
	}

	switch err := model.Err(); {
	case errors.Is(err, orchestrator.ErrCapacityExceeded):
		return fmt.Errorf("room %q is full", room)
	case err != nil:
		return err
	}

	ui.PrintInfof("Left room %s", room)
	return nil
}
