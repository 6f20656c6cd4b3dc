package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"consult-client/internal/auth"
	"consult-client/internal/chat"
	"consult-client/internal/config"
	"consult-client/internal/models"
)

// Terminal chat client: connects to the broker, opens the room shared with
// the counterpart given on the command line, prints the merged message
// stream and sends stdin lines.
func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: consult-chat <counterpart-id>")
		os.Exit(2)
	}
	counterpartID := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	credPath := cfg.Auth.CredentialsFile
	if credPath == "" {
		if credPath, err = auth.DefaultPath(); err != nil {
			logger.Fatal("resolve credential path", zap.Error(err))
		}
	}
	store := auth.NewStore(credPath, logger)

	token, err := store.Token()
	if err != nil {
		logger.Fatal("read credentials", zap.Error(err))
	}
	if token == "" || auth.Expired(token, time.Now()) {
		fmt.Fprintln(os.Stderr, "no valid session; log in first")
		os.Exit(1)
	}
	profile, err := store.Profile()
	if err != nil {
		logger.Fatal("read profile", zap.Error(err))
	}

	session := chat.NewSession(chat.Config{
		Endpoint:         cfg.Chat.BrokerURL,
		ReconnectDelay:   cfg.Chat.ReconnectDelay,
		HandshakeTimeout: cfg.Chat.HandshakeTimeout,
	}, store, logger)
	defer session.Disconnect()

	var (
		mu       sync.Mutex
		history  []models.Message
		roomID   string
		roomOpen = make(chan string, 1)
	)

	onEvent := func(ev chat.Event) {
		mu.Lock()
		defer mu.Unlock()
		history = models.MergeMessages(history, ev.Message)
		render(profile.ID, history)
	}

	// Runs on every successful handshake: subscriptions do not survive a
	// reconnect, so the room is renegotiated and resubscribed each time.
	session.Connect(chat.Callbacks{
		OnTopicsReady: func() {
			err := session.InitRoom(counterpartID, func(id string) {
				mu.Lock()
				roomID = id
				mu.Unlock()
				if err := session.SubscribeRoom(id, onEvent); err != nil {
					logger.Error("subscribe room", zap.Error(err))
					return
				}
				select {
				case roomOpen <- id:
				default:
				}
			})
			if err != nil {
				logger.Error("init room", zap.Error(err))
			}
		},
		OnOpen: func(info chat.ConnectionInfo) {
			logger.Info("connected", zap.String("endpoint", info.Endpoint))
		},
		OnError: func(err error) {
			fmt.Fprintln(os.Stderr, "reconnecting:", err)
		},
	})

	select {
	case <-roomOpen:
	case <-time.After(30 * time.Second):
		logger.Fatal("room negotiation timed out")
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			mu.Lock()
			room := roomID
			mu.Unlock()
			err := session.Send(room, models.SendMessageRequest{
				ReceiverID: counterpartID,
				Content:    line,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, "send failed:", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("\nbye")
}

func render(selfID string, history []models.Message) {
	fmt.Print("\033[2J\033[H")
	for _, m := range history {
		who := m.SenderID
		if m.SenderID == selfID {
			who = "me"
		}
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), who, m.Content)
	}
	fmt.Print("> ")
}
