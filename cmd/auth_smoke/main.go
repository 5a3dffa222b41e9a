// Command auth_smoke runs the client session flow against a live server:
// sign in, fetch the profile, watch the revocation feed and sign out.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"diamond_tma/internal/client"
	"diamond_tma/internal/domain"
	"diamond_tma/internal/logger"
	"diamond_tma/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init("debug", false)

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN not set")
	}

	base := os.Getenv("SMOKE_BASE_URL")
	if base == "" {
		port := os.Getenv("APP_PORT")
		if port == "" {
			port = "8080"
		}
		base = "http://localhost:" + port
	}

	host := client.HostFunc(func(context.Context) (string, error) {
		user, _ := json.Marshal(domain.Identity{TelegramID: 3001, FirstName: "Smoke", Username: "smoke"})
		vals := url.Values{}
		vals.Set("user", string(user))
		vals.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
		return telegram.Sign(vals, botToken), nil
	})

	mgr, err := client.New(client.Options{BaseURL: base, Host: host})
	if err != nil {
		log.Fatal(err)
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mgr.Initialize(ctx); err != nil {
		log.Fatalf("sign in failed: %v", err)
	}
	user, err := mgr.CurrentUser(ctx)
	if err != nil {
		log.Fatalf("current user: %v", err)
	}
	log.Printf("signed in as id=%d first_name=%s state=%s", user.TelegramID, user.FirstName, mgr.State())

	sess, err := mgr.Session(ctx)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	me, err := client.NewAPIClient(base, 0).Me(ctx, sess.Token)
	if err != nil {
		log.Fatalf("/me failed: %v", err)
	}
	log.Printf("/me: %v", me["user"])

	watched := make(chan error, 1)
	go func() { watched <- mgr.WatchRevocations(ctx) }()
	// give the feed a moment to connect before revoking
	time.Sleep(500 * time.Millisecond)

	if err := mgr.SignOut(ctx); err != nil {
		log.Fatalf("sign out: %v", err)
	}

	select {
	case err := <-watched:
		if !errors.Is(err, domain.ErrTokenRevoked) {
			log.Fatalf("revocation feed ended with %v", err)
		}
		log.Println("revocation pushed")
	case <-ctx.Done():
		log.Fatal("no revocation pushed")
	}

	if _, err := client.NewAPIClient(base, 0).Me(ctx, sess.Token); !errors.Is(err, domain.ErrTokenInvalid) {
		log.Fatalf("revoked token still accepted: %v", err)
	}
	log.Println("smoke OK")
}
