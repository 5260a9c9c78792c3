package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/courtline/rally/cmd/rally/internal"
	"github.com/courtline/rally/pkg/api"
	"github.com/courtline/rally/pkg/bus"
	chatcore "github.com/courtline/rally/pkg/chat"
	"github.com/courtline/rally/pkg/logger"
	"github.com/courtline/rally/pkg/realtime"
)

func chatCmd(roomID string, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cred, err := internal.LoadCredential(cfg)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.API.BaseURL, cred.AccessToken, cfg.APITimeout())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	room, err := findRoom(ctx, client, roomID)
	if err != nil {
		return err
	}

	events := bus.NewEventBus()
	defer events.Close()

	manager := realtime.NewManager(realtime.Options{
		URL:                  cfg.Realtime.URL,
		Token:                cred.AccessToken,
		UserID:               cred.UserID,
		HandshakeTimeout:     cfg.HandshakeTimeout(),
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
	})
	defer manager.Close()

	session := chatcore.NewSession(chatcore.SessionOptions{
		RoomID:          room.ID,
		ViewerID:        cred.UserID,
		ViewerName:      cred.Nickname,
		IsHost:          room.HostID == cred.UserID,
		HistoryPageSize: cfg.HistoryPageSize(),
	}, client, manager, events)

	bindSession(manager, session)
	manager.OnError(func(code int, msg string) {
		_ = events.PublishNotice(context.TODO(), bus.Notice{
			RoomID: room.ID, Level: "error",
			Text: fmt.Sprintf("connection lost (%d): %s", code, msg),
		})
	})

	if err := manager.Connect(ctx); err != nil {
		return err
	}
	if err := session.Open(ctx); err != nil {
		return err
	}
	defer session.Close()

	r := newRenderer(session)
	r.renderAll()
	go consumeEvents(ctx, events, session, r)

	fmt.Printf("[%s] type a message, or /request /confirm <user> /cancel /quit\n", room.Title)
	return inputLoop(ctx, session)
}

// findRoom resolves the room and its host from the rooms listing; the host
// flag gates the approval actions.
func findRoom(ctx context.Context, client *api.Client, roomID string) (*api.Room, error) {
	rooms, err := client.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].ID == roomID {
			return &rooms[i], nil
		}
	}
	return nil, fmt.Errorf("room %q not found (see `rally rooms`)", roomID)
}

func bindSession(m *realtime.Manager, s *chatcore.Session) {
	m.OnEvent(realtime.EventNewMessage, func(ev realtime.Event) {
		s.HandleIncoming(ev.RoomID, ev.Data)
	})
	m.OnEvent(realtime.EventMessageRead, func(ev realtime.Event) {
		s.HandleReadReceipt(ev.RoomID, ev.Data)
	})
	m.OnEvent(realtime.EventUserJoined, func(ev realtime.Event) {
		s.HandlePresence(ev.RoomID, true, ev.Data)
	})
	m.OnEvent(realtime.EventUserLeft, func(ev realtime.Event) {
		s.HandlePresence(ev.RoomID, false, ev.Data)
	})
	m.OnEvent(realtime.EventParticipantApproved, func(ev realtime.Event) {
		s.HandleApproved(ev.RoomID, ev.Data)
	})
	m.OnEvent(realtime.EventConnected, func(_ realtime.Event) {
		s.HandleConnected(context.Background())
	})
}

// consumeEvents drains the bus: every update re-renders the tail and
// acknowledges the newest incoming message; notices print as-is.
func consumeEvents(ctx context.Context, events *bus.EventBus, s *chatcore.Session, r *renderer) {
	go func() {
		for {
			n, ok := events.ConsumeNotice(ctx)
			if !ok {
				return
			}
			fmt.Printf("  * %s\n", n.Text)
		}
	}()
	for {
		_, ok := events.ConsumeUpdate(ctx)
		if !ok {
			return
		}
		r.renderNew()
		ackCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.AckLatest(ackCtx); err != nil {
			logger.WarnCF("chat", "Mark-as-read failed", map[string]any{"error": err.Error()})
		}
		cancel()
	}
}

func inputLoop(ctx context.Context, s *chatcore.Session) error {
	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runSlashCommand(ctx, s, line); quit {
				return nil
			}
			continue
		}

		if err := s.SendMessage(ctx, line, chatcore.KindText); err != nil {
			fmt.Printf("  ! send failed: %v\n", err)
		}
	}
}

func runSlashCommand(ctx context.Context, s *chatcore.Session, line string) (quit bool) {
	fields := strings.Fields(line)
	var err error
	switch fields[0] {
	case "/quit", "/q":
		return true
	case "/request":
		err = s.RequestApproval(ctx)
	case "/confirm":
		if len(fields) < 2 {
			fmt.Println("  ! usage: /confirm <participant-id> [name]")
			return false
		}
		name := ""
		if len(fields) > 2 {
			name = strings.Join(fields[2:], " ")
		}
		err = s.ConfirmParticipant(ctx, fields[1], name)
	case "/cancel":
		err = s.CancelApproval(ctx)
	case "/status":
		fmt.Printf("  approval: %s\n", statusLabel(s.Approval()))
		return false
	default:
		fmt.Printf("  ! unknown command %s\n", fields[0])
		return false
	}

	switch {
	case errors.Is(err, chatcore.ErrNotAllowed):
		fmt.Printf("  ! not available while approval is %s\n", statusLabel(s.Approval()))
	case err != nil:
		fmt.Printf("  ! %v\n", err)
	}
	return false
}

func statusLabel(st chatcore.ApprovalStatus) string {
	if st == chatcore.StatusNone {
		return "not requested"
	}
	return string(st)
}
