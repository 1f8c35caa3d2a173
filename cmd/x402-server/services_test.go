package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultravioletadao/x402-go/facilitator"
	"github.com/ultravioletadao/x402-go/types"
)

func TestRunEscrowList(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/escrow", r.URL.Path)
		assert.Equal(t, "held", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = fmt.Fprintf(w, `{"escrows":[
			{"id":"esc_live","status":"held","network":"base","amount":"10000","expiresAt":%q,"createdAt":%q,"updatedAt":%q},
			{"id":"esc_old","status":"held","network":"celo","amount":"20000","expiresAt":%q,"createdAt":%q,"updatedAt":%q}
		],"total":2,"page":1,"limit":20,"hasMore":false}`,
			now.Add(2*time.Hour).Format(time.RFC3339), now.Add(-time.Hour).Format(time.RFC3339), now.Format(time.RFC3339),
			now.Add(-time.Hour).Format(time.RFC3339), now.Add(-3*time.Hour).Format(time.RFC3339), now.Format(time.RFC3339))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Escrow.URL = srv.URL
	cfg.Escrow.APIKey = "key"

	var out bytes.Buffer
	require.NoError(t, runEscrowList(context.Background(), &out, newEscrowClient(cfg), facilitator.EscrowFilter{Status: facilitator.EscrowHeld}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "esc_live")
	assert.True(t, strings.HasSuffix(lines[1], "true"))
	assert.Contains(t, lines[2], "expired")
	assert.True(t, strings.HasSuffix(lines[2], "false"))
	assert.Equal(t, "page 1, 2 of 2", lines[3])
}

func TestRunReputation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/identity/ethereum/42":
			_, _ = w.Write([]byte(`{"agentId":42,"owner":"0xowner","agentUri":"https://agent.example.com/42.json","network":"ethereum"}`))
		case "/reputation/ethereum/42":
			_, _ = w.Write([]byte(`{"agentId":42,"network":"ethereum","summary":{"agentId":42,"count":3,"summaryValue":93,"summaryValueDecimals":0,"network":"ethereum"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Facilitator.URL = srv.URL
	client := facilitator.NewReputationClient(newFacilitator(cfg))

	var out bytes.Buffer
	require.NoError(t, runReputation(context.Background(), &out, client, "ethereum", "42", facilitator.ReputationQuery{}))

	var got struct {
		Identity   facilitator.AgentIdentity      `json:"identity"`
		Reputation facilitator.ReputationResponse `json:"reputation"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "0xowner", got.Identity.Owner)
	assert.Equal(t, uint64(3), got.Reputation.Summary.Count)

	err := runReputation(context.Background(), &out, client, "ethereum", "forty-two", facilitator.ReputationQuery{})
	assert.True(t, errors.Is(err, types.ErrMalformedPayload))

	err = runReputation(context.Background(), &out, client, "ethereum", "7", facilitator.ReputationQuery{})
	assert.True(t, errors.Is(err, facilitator.ErrNotFound))
}
