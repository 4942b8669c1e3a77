package test

import (
	"bot_manager/dal"
	"bot_manager/dto"
	"bot_manager/logic"
	"bot_manager/shared"
	"encoding/json"
	"github.com/charmbracelet/log"
	"github.com/go-fed/httpsig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newRelayPublisher(relayUrl string, dryRun bool) logic.IPublisher {
	cfg := &shared.Config{Publisher: shared.Publisher{
		RelayUrl:   relayUrl,
		TimeoutSec: 2,
		DryRun:     dryRun,
		UserAgent:  "bot-manager-test",
	}}
	return logic.NewPublisher(cfg, log.New(io.Discard), shared.NewUserAgent(cfg), testMetrics)
}

var relayAccount = &dal.Account{Id: 1, Name: "herald", ApiKey: "k-herald", ApiKeySecret: "s-herald"}

func TestPublisherSignsRelayRequest(t *testing.T) {
	var got dto.RelayPostRequest
	var sigHeader, digestHeader, userAgent, keyId string
	var verifyErr, wrongKeyErr error
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sigHeader = r.Header.Get("Signature")
		digestHeader = r.Header.Get("Digest")
		verifier, err := httpsig.NewVerifier(r)
		if err != nil {
			verifyErr = err
		} else {
			keyId = verifier.KeyId()
			verifyErr = verifier.Verify([]byte("s-herald"), httpsig.HMAC_SHA256)
			wrongKeyErr = verifier.Verify([]byte("s-crier"), httpsig.HMAC_SHA256)
		}
		userAgent = r.Header.Get("User-Agent")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"id":"1789"}`))
	}))
	defer relay.Close()

	postId, err := newRelayPublisher(relay.URL+"/post", false).Publish(relayAccount, "hello")
	require.NoError(t, err)
	assert.Equal(t, "1789", postId)
	assert.Equal(t, dto.RelayPostRequest{Account: "herald", Text: "hello"}, got)
	assert.Contains(t, sigHeader, `algorithm="hs2019"`)
	assert.Equal(t, "k-herald", keyId)
	assert.NoError(t, verifyErr)
	assert.Error(t, wrongKeyErr)
	assert.True(t, strings.HasPrefix(digestHeader, "SHA-256="), digestHeader)
	assert.Equal(t, "bot-manager-test", userAgent)
}

func TestPublisherReportsRelayFailure(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer relay.Close()

	_, err := newRelayPublisher(relay.URL, false).Publish(relayAccount, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = newRelayPublisher("not a url", false).Publish(relayAccount, "hello")
	assert.Error(t, err)
}

func TestPublisherDryRun(t *testing.T) {
	postId, err := newRelayPublisher("", true).Publish(relayAccount, "hello")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(postId, "dry-"))
}
