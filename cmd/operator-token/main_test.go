package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kardex-pos/pkg/auth"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

func TestMintRoundTripsThroughParse(t *testing.T) {
	cfg := config.JWTConfig{Secret: "test-secret", Issuer: "kardex-pos", ExpirationMinutes: 60}
	token, err := mint(cfg, "cashier-9", "cashier", 5, time.Now())
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "cashier-9", claims.Operator())
	assert.Equal(t, enums.OperatorRoleCashier, claims.Role)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, time.Minute)
}

func TestMintRejectsUnknownRole(t *testing.T) {
	cfg := config.JWTConfig{Secret: "test-secret", Issuer: "kardex-pos", ExpirationMinutes: 60}
	_, err := mint(cfg, "op", "supervisor", 0, time.Now())
	require.Error(t, err)
}

func TestMintRequiresOperator(t *testing.T) {
	cfg := config.JWTConfig{Secret: "test-secret", Issuer: "kardex-pos", ExpirationMinutes: 60}
	_, err := mint(cfg, "  ", "admin", 0, time.Now())
	require.Error(t, err)
}
