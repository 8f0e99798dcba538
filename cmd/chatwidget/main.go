package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumacart/chatwidget/internal/client"
	"github.com/lumacart/chatwidget/internal/config"
	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/session"
	"github.com/lumacart/chatwidget/internal/store"
	"github.com/lumacart/chatwidget/internal/widget"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	st, err := newStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	defer st.Close()

	backend := client.New(cfg.Backend.BaseURL, logger,
		client.WithHydrateTimeout(cfg.HydrateTimeout()),
	)

	w := widget.New()
	w.Open()

	mgr := session.New(backend, st, logger,
		session.WithOnUpdate(func(s session.State) {
			if out := w.Render(s); out != "" {
				fmt.Print(out)
			}
		}),
		session.WithOnCloseWidget(func() {
			w.Close()
			fmt.Println("(chat closed)")
		}),
	)
	defer mgr.Close()

	identity := domain.Identity{
		UserID:    cfg.Identity.UserID,
		UserName:  cfg.Identity.UserName,
		UserEmail: cfg.Identity.UserEmail,
	}
	mgr.SetIdentity(identity)

	ctx := context.Background()
	// Hydration failures surface through the error banner.
	_ = mgr.Bootstrap(ctx)

	fmt.Println(`Type a message, a quick-reply number, or /login <id> [name], /logout, /restart, /quit.`)
	runLoop(ctx, mgr, w, identity)
}

func runLoop(ctx context.Context, mgr *session.Manager, w *widget.Widget, identity domain.Identity) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			mgr.DismissError()

		case line == "/quit":
			return

		case line == "/logout":
			prev := identity.UserID
			identity = domain.Identity{}
			mgr.OnUserIdentityChanged(ctx, identity, prev)

		case strings.HasPrefix(line, "/login"):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				fmt.Println("usage: /login <id> [name] [email]")
				continue
			}
			prev := identity.UserID
			identity = domain.Identity{UserID: fields[1]}
			if len(fields) > 2 {
				identity.UserName = fields[2]
			}
			if len(fields) > 3 {
				identity.UserEmail = fields[3]
			}
			mgr.OnUserIdentityChanged(ctx, identity, prev)

		case line == "/restart":
			_ = mgr.Restart(ctx)

		default:
			text := line
			// A bare number picks the matching quick reply.
			if n, err := strconv.Atoi(line); err == nil {
				suggestions := mgr.State().Suggestions
				if n >= 1 && n <= len(suggestions) {
					text = suggestions[n-1]
				}
			}
			w.SetDraft("")
			_ = mgr.Send(ctx, text, nil)
		}
	}
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch store.Driver(cfg.Store.Driver) {
	case store.DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		return store.New(store.DriverRedis,
			store.WithRedisClient(rdb),
			store.WithRedisTTL(time.Duration(cfg.Store.RedisTTL)*time.Hour),
		)
	case store.DriverMemory:
		return store.New(store.DriverMemory)
	default:
		return store.New(store.DriverSQLite, store.WithPath(cfg.Store.Path))
	}
}
