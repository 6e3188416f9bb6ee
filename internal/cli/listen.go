package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/averho/chatgate/internal/model"
)

func newListenCmd() *cobra.Command {
	var (
		rooms      []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Connect to the gateway and stream room events",
		Long: `Open a websocket connection to the gateway, optionally join rooms,
and print every event frame as it arrives.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listen(rooms, jsonOutput)
		},
	}

	cmd.Flags().StringSliceVar(&rooms, "room", nil, "Room id to join (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as raw JSON lines")

	return cmd
}

func listen(rooms []string, jsonOutput bool) error {
	header := http.Header{}
	if client.Token() != "" {
		header.Set("Authorization", "Bearer "+client.Token())
	}

	conn, resp, err := websocket.DefaultDialer.Dial(client.WebsocketURL(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connect failed: %s", resp.Status)
		}
		return fmt.Errorf("connect failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	fmt.Fprintln(os.Stderr, "connected")

	if len(rooms) > 0 {
		data, err := json.Marshal(rooms)
		if err != nil {
			return err
		}
		join := model.Frame{Event: model.CmdJoinRooms, Data: data}
		if err := conn.WriteJSON(join); err != nil {
			return fmt.Errorf("join failed: %w", err)
		}
	}

	// Reader goroutine feeds frames to the printer until error or interrupt
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			frames <- data
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case data, ok := <-frames:
			if !ok {
				err := <-readErr
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			}
			printFrame(data, jsonOutput)

		case <-sigCh:
			fmt.Fprintln(os.Stderr, "disconnecting")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil
		}
	}
}

func printFrame(data []byte, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	var frame model.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		fmt.Println(string(data))
		return
	}
	ts := time.Now().Format("15:04:05")
	if frame.Channel != "" {
		fmt.Printf("[%s] %s %s %s\n", ts, frame.Event, frame.Channel, string(frame.Data))
	} else {
		fmt.Printf("[%s] %s %s\n", ts, frame.Event, string(frame.Data))
	}
}
