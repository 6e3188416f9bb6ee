package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomPresenceCmd())
	cmd.AddCommand(newRoomBroadcastCmd())

	return cmd
}

func newRoomPresenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presence <room-id>",
		Short: "Show how many connections are subscribed to a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Channel     string `json:"channel"`
				Connections int    `json:"connections"`
			}

			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%s/presence", args[0]), &result); err != nil {
				return err
			}

			fmt.Printf("room %s: %d connection(s)\n", result.Channel, result.Connections)
			return nil
		},
	}
}

func newRoomBroadcastCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "broadcast <room-id> <event>",
		Short: "Broadcast an event to a room",
		Long: `Publish an event frame to every connection subscribed to the room,
on this gateway process and its peers. Requires a moderator or admin
role in the room.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"event": args[1]}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data must be valid JSON")
				}
				req["data"] = json.RawMessage(data)
			}

			var result struct {
				Channel string `json:"channel"`
				Event   string `json:"event"`
			}

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/broadcast", args[0]), req, &result); err != nil {
				return err
			}

			fmt.Printf("broadcast %s to room %s accepted\n", result.Event, result.Channel)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "JSON payload to attach to the event")

	return cmd
}
