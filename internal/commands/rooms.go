package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jheehg/webrtc-learning/internal/config"
	"github.com/jheehg/webrtc-learning/internal/signaling"
	"github.com/jheehg/webrtc-learning/internal/ui"
)

const roomsTimeout = 5 * time.Second

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List live rooms on the signaling server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Options{})
		if err != nil {
			return err
		}

		rooms, err := fetchRooms(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		ui.RenderRoomsTable(cmd.OutOrStdout(), rooms)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}

func fetchRooms(ctx context.Context, cfg *config.Config) ([]signaling.RoomInfo, error) {
	url, err := cfg.RoomsURL()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, roomsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list rooms: %s", resp.Status)
	}

	var rooms []signaling.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}
