package logic

import (
	"bot_manager/dal"
	"bot_manager/dto"
	"bot_manager/shared"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-fed/httpsig"
	"github.com/google/uuid"
	"io"
	"net/http"
	"net/url"
	"time"
)

//go:generate mockgen --build_flags=--mod=mod -destination ../test/mocks/mock_publisher.go -package mocks bot_manager/logic IPublisher

// IPublisher sends one post on behalf of an account and returns the id the
// platform assigned to it.
type IPublisher interface {
	Publish(acct *dal.Account, text string) (postId string, err error)
}

const defaultPublishTimeoutSec = 10

type relayPublisher struct {
	cfg       *shared.Config
	logger    shared.ILogger
	userAgent shared.IUserAgent
	metrics   IMetrics
	client    *http.Client
}

func NewPublisher(cfg *shared.Config,
	logger shared.ILogger,
	userAgent shared.IUserAgent,
	metrics IMetrics,
) IPublisher {
	timeoutSec := cfg.Publisher.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = defaultPublishTimeoutSec
	}
	client := &http.Client{Timeout: time.Second * time.Duration(timeoutSec)}
	return &relayPublisher{cfg, logger, userAgent, metrics, client}
}

func (pub *relayPublisher) Publish(acct *dal.Account, text string) (string, error) {

	if pub.cfg.Publisher.DryRun {
		postId := "dry-" + uuid.NewString()
		pub.logger.Infof("Dry run: %s would post %q; reporting id %s", acct.Name, text, postId)
		return postId, nil
	}

	obs := pub.metrics.StartPublishRequestOut()
	defer obs.Finish()

	relayUrl, err := url.Parse(pub.cfg.Publisher.RelayUrl)
	if err != nil || relayUrl.Host == "" {
		return "", fmt.Errorf("invalid relay url: %q", pub.cfg.Publisher.RelayUrl)
	}

	bodyJson, _ := json.Marshal(&dto.RelayPostRequest{Account: acct.Name, Text: text})
	req, err := http.NewRequest("POST", relayUrl.String(), bytes.NewBuffer(bodyJson))
	if err != nil {
		return "", err
	}
	pub.userAgent.AddUserAgent(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("host", relayUrl.Host)
	req.Header.Set("date", time.Now().UTC().Format(http.TimeFormat))

	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.HMAC_SHA256},
		httpsig.DigestSha256,
		[]string{httpsig.RequestTarget, "host", "date", "digest"},
		httpsig.Signature,
		0)
	if err != nil {
		return "", err
	}
	if err = signer.SignRequest([]byte(acct.ApiKeySecret), acct.ApiKey, req, bodyJson); err != nil {
		return "", err
	}

	resp, err := pub.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		msg := fmt.Sprintf("got status %s: response: %s", resp.Status, respBody)
		pub.logger.Warnf("Relay POST failed for %s: %s", acct.Name, msg)
		return "", errors.New(msg)
	}
	var relayResp dto.RelayPostResponse
	if err = json.Unmarshal(respBody, &relayResp); err != nil {
		return "", fmt.Errorf("unreadable relay response: %w", err)
	}
	if relayResp.Id == "" {
		return "", errors.New("relay response carries no post id")
	}
	return relayResp.Id, nil
}
