// Command operator-token mints a bearer token for a POS operator. The API only
// verifies tokens; issuing them is an offline admin task.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/kardex-pos/pkg/auth"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "operator-token"})

	_ = godotenv.Load()

	operator := flag.String("operator", "", "operator id recorded as created_by")
	role := flag.String("role", string(enums.OperatorRoleCashier), "operator role: admin|cashier")
	ttl := flag.Int("ttl-minutes", 0, "override KARDEX_JWT_EXPIRATION_MINUTES")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	token, err := mint(cfg.JWT, *operator, *role, *ttl, time.Now())
	if err != nil {
		logg.Error(context.Background(), "failed to mint operator token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(cfg config.JWTConfig, operator, role string, ttlMinutes int, now time.Time) (string, error) {
	parsed, err := enums.ParseOperatorRole(role)
	if err != nil {
		return "", err
	}
	if ttlMinutes > 0 {
		cfg.ExpirationMinutes = ttlMinutes
	}
	return auth.MintAccessToken(cfg, now, auth.AccessTokenPayload{
		OperatorID: operator,
		Role:       parsed,
	})
}
