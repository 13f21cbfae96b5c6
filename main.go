package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"pixelchat/internal/config"
	"pixelchat/internal/content"
	"pixelchat/internal/events"
	"pixelchat/internal/identity"
	"pixelchat/internal/models"
	"pixelchat/internal/rooms"
	"pixelchat/internal/socket"
	"pixelchat/internal/storage"
	"pixelchat/internal/timeline"

	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context) error {
	roomID := flag.Int64("room", 0, "Conversation id to join")
	group := flag.Bool("group", false, "Treat the room as a group chat")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	self, err := identity.FromToken(cfg.AuthToken)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.CacheFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess := socket.NewSession(ctx, socket.Config{
		URL:               cfg.ServerURL,
		Token:             cfg.AuthToken,
		DialTimeout:       cfg.DialTimeout,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectAttempts: cfg.ReconnectAttempts,
		AckTTL:            cfg.AckTTL,
	}, nil, nil)

	list := rooms.NewList(ctx, sess, rooms.Config{
		Self:  self.UserID,
		Store: store,
	})
	defer list.Close()

	if cached, err := store.ListRooms(); err == nil {
		list.Seed(cached)
	}

	kind := models.RoomDirect
	if *group {
		kind = models.RoomGroup
	}
	key := models.RoomKey{Kind: kind, ID: *roomID}
	ns := events.ForKind(*group)

	var tl *timeline.Timeline
	if *roomID != 0 {
		tl = timeline.New(sess, timeline.Config{
			Room:       *roomID,
			Events:     ns,
			Self:       self,
			TypingIdle: cfg.TypingIdle,
		})
		defer func() {
			tl.Close()
			if err := store.SaveMessages(key, tl.Messages()); err != nil {
				log.Printf("failed to cache messages: %v", err)
			}
		}()

		// Print inbound activity for the joined room.
		defer sess.On(ns.NewMessage, func(data json.RawMessage) {
			var msg models.Message
			if err := json.Unmarshal(data, &msg); err != nil || msg.RoomID != *roomID {
				return
			}
			fmt.Printf("[%d] %s\n", msg.SenderID, content.PlainPreview(&msg))
		})()
		defer sess.On(ns.UserTyping, func(data json.RawMessage) {
			var ts models.TypingState
			if err := json.Unmarshal(data, &ts); err != nil || ts.RoomID != *roomID {
				return
			}
			fmt.Printf("%s is typing...\n", ts.Name)
		})()
	}

	defer sess.OnStatus(func(st socket.Status) {
		if st.Connected {
			fmt.Println("connected")
		} else if st.Err != nil {
			fmt.Printf("disconnected: %v\n", st.Err)
		}
	})()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(gCtx)
	})

	g.Go(func() error {
		defer func() { _ = sess.Close() }()
		return repl(gCtx, tl, list)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// repl reads commands from stdin until EOF or cancellation. Plain lines
// are sent as messages to the joined room.
func repl(ctx context.Context, tl *timeline.Timeline, list *rooms.List) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleLine(line, tl, list); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
	}
}

func handleLine(line string, tl *timeline.Timeline, list *rooms.List) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if line == "/rooms" {
		for _, room := range list.Rooms() {
			preview := content.PlainPreview(room.LastMessage)
			if ts, ok := list.Typing(room.Key()); ok {
				preview = ts.Name + " is typing..."
			}
			fmt.Printf("%6d  %-20s %s\n", room.ID, room.Name, preview)
		}
		return nil
	}

	if tl == nil {
		return errors.New("no room joined, start with -room")
	}

	switch {
	case line == "/more":
		return tl.LoadMore()

	case line == "/history":
		for _, msg := range tl.Messages() {
			marker := " "
			switch {
			case msg.Pending():
				marker = "?"
			case msg.Status == models.StatusRead:
				marker = "✓"
			}
			fmt.Printf("%s %6d [%d] %s\n", marker, msg.ID, msg.SenderID, content.PlainPreview(&msg))
		}
		return nil

	case strings.HasPrefix(line, "/edit "):
		id, rest, err := idArg(strings.TrimPrefix(line, "/edit "))
		if err != nil {
			return err
		}
		return tl.Edit(id, rest)

	case strings.HasPrefix(line, "/del "):
		id, _, err := idArg(strings.TrimPrefix(line, "/del "))
		if err != nil {
			return err
		}
		return tl.Delete(id)

	case strings.HasPrefix(line, "/react "):
		id, emoji, err := idArg(strings.TrimPrefix(line, "/react "))
		if err != nil {
			return err
		}
		return tl.AddReaction(id, emoji)

	case strings.HasPrefix(line, "/unreact "):
		id, _, err := idArg(strings.TrimPrefix(line, "/unreact "))
		if err != nil {
			return err
		}
		return tl.RemoveReaction(id)

	default:
		tl.InputChanged(line)
		err := tl.SendMessage(line, nil)
		tl.InputChanged("")
		if errors.Is(err, socket.ErrNotConnected) {
			fmt.Println("offline, message stays pending")
			return nil
		}
		return err
	}
}

func idArg(s string) (int64, string, error) {
	s = strings.TrimSpace(s)
	idStr, rest, _ := strings.Cut(s, " ")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad message id %q", idStr)
	}
	return id, strings.TrimSpace(rest), nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
