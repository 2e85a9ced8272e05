package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/roundtable/internal/protocol"
)

var watchSender string

var watchCmd = &cobra.Command{
	Use:   "watch <discussion_id>",
	Short: "Follow a discussion live and post messages from stdin",
	Long: `watch prints the transcript so far, then every new message as it is
stored. Each line typed on stdin is submitted as a human message.
Type /quit to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		conn, err := dialDiscussion(ctx, serverAddr, args[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		w := &lockedWriter{w: cmd.OutOrStdout()}
		done := make(chan error, 1)
		go func() { done <- readFrames(conn, w) }()

		lines := make(chan string)
		go scanLines(cmd.InOrStdin(), lines)

		seq := 0
		for {
			select {
			case <-ctx.Done():
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			case err := <-done:
				return err
			case line, ok := <-lines:
				if !ok || line == "/quit" {
					conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return nil
				}
				seq++
				msg := protocol.SubmitMessage{
					BaseMessage: protocol.NewBase(protocol.TypeSubmitMessage, args[0], fmt.Sprintf("req_%d", seq)),
					Content:     line,
					SenderID:    watchSender,
				}
				if err := w.writeJSON(conn, msg); err != nil {
					return fmt.Errorf("send: %w", err)
				}
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchSender, "sender", "s", "", "sender id for submitted messages")
}

// readFrames renders server frames until the connection closes.
func readFrames(conn *websocket.Conn, w *lockedWriter) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
				return fmt.Errorf("server dropped this connection for falling behind")
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := w.renderFrame(data); err != nil {
			return err
		}
	}
}

// renderFrame prints one server frame.
func (w *lockedWriter) renderFrame(data []byte) error {
	msgType, err := protocol.Decode(data)
	if err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch msgType {
	case protocol.TypeHistorySnapshot:
		var snap protocol.HistorySnapshotMessage
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		fmt.Fprintln(w.w, titleStyle.Render(snap.Discussion.Topic))
		renderRoster(w.w, snap.Participants)
		fmt.Fprintln(w.w)
		for _, m := range snap.Messages {
			renderMessage(w.w, m)
		}
		fmt.Fprintln(w.w, dimStyle.Render("Type a message and press Enter. /quit to leave."))
	case protocol.TypeMessageAppended:
		var ev protocol.MessageAppendedMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal message: %w", err)
		}
		renderMessage(w.w, ev.Message)
	case protocol.TypeSubmitAck:
		var ack protocol.SubmitAckMessage
		if err := json.Unmarshal(data, &ack); err != nil {
			return fmt.Errorf("unmarshal ack: %w", err)
		}
		fmt.Fprintln(w.w, dimStyle.Render(fmt.Sprintf("queued as %s (position %d)", ack.RunID, ack.QueuePosition)))
	case protocol.TypeError:
		var e protocol.ErrorMessage
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}
		renderError(w.w, e.Code, e.Message)
	}
	return nil
}

func scanLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out <- line
		}
	}
}

// lockedWriter serializes terminal output and socket writes.
type lockedWriter struct {
	mu     sync.Mutex
	w      io.Writer
	sendMu sync.Mutex
}

func (w *lockedWriter) writeJSON(conn *websocket.Conn, v any) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	return conn.WriteJSON(v)
}
