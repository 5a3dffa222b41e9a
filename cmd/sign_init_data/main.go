// Command sign_init_data prints init data signed with BOT_TOKEN, for driving
// the auth endpoint outside of Telegram during development.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	id := flag.Int64("id", 1234567890, "telegram user id")
	firstName := flag.String("first-name", "Tester", "user first_name")
	username := flag.String("username", "testuser", "user username")
	age := flag.Duration("age", 0, "how old auth_date should be")
	asJSON := flag.Bool("json", false, "print a request body instead of the raw string")
	flag.Parse()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN not set")
	}

	raw, err := signedInitData(botToken, domain.Identity{
		TelegramID: *id,
		FirstName:  *firstName,
		Username:   *username,
	}, time.Now().Add(-*age))
	if err != nil {
		log.Fatal(err)
	}

	if *asJSON {
		body, _ := json.Marshal(map[string]string{"init_data": raw})
		fmt.Println(string(body))
		return
	}
	fmt.Println(raw)
}

func signedInitData(botToken string, user domain.Identity, authDate time.Time) (string, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}

	vals := url.Values{}
	vals.Set("user", string(userJSON))
	vals.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	vals.Set("query_id", fmt.Sprintf("dev%d", authDate.UnixNano()))
	return telegram.Sign(vals, botToken), nil
}
