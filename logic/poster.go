package logic

import (
	"bot_manager/dal"
	"bot_manager/shared"
	"errors"
	"fmt"
)

// IPoster publishes posts for accounts and records the outcome. The store is
// only held while reading inputs and writing results, never during the
// network call.
type IPoster interface {
	PostNow(accountId int64, text string) (*PostResult, error)
	FireSchedule(accountId int64) (*PostResult, error)
}

// PostResult describes one publishing attempt. A failed attempt is a result
// with Success false, not an error.
type PostResult struct {
	Success bool
	PostId  string
	Content string
	Message string
	Cursor  *int // rotation cursor after a scheduled post
}

type poster struct {
	logger    shared.ILogger
	repo      dal.IRepo
	publisher IPublisher
	metrics   IMetrics
}

func NewPoster(
	logger shared.ILogger,
	repo dal.IRepo,
	publisher IPublisher,
	metrics IMetrics,
) IPoster {
	return &poster{logger, repo, publisher, metrics}
}

func (p *poster) PostNow(accountId int64, text string) (*PostResult, error) {

	if shared.IsBlank(text) {
		return nil, dal.NewValidationError(dal.VePostTextEmpty)
	}
	acct, err := p.repo.GetAccount(accountId)
	if err != nil {
		return nil, err
	}
	return p.publish(acct, text)
}

// FireSchedule posts the current content of the account's active schedule and,
// if that succeeds, moves the rotation cursor on.
func (p *poster) FireSchedule(accountId int64) (*PostResult, error) {

	acct, err := p.repo.GetAccount(accountId)
	if err != nil {
		return nil, err
	}
	sched, err := p.repo.GetActiveSchedule(accountId)
	if err != nil {
		return nil, err
	}

	res, err := p.publish(acct, sched.CurrentContent())
	if err != nil || !res.Success {
		return res, err
	}

	advanced, err := p.repo.AdvanceSchedule(accountId)
	if errors.Is(err, dal.ErrNotFound) {
		p.logger.Warnf("Schedule of account %d went away while post %s was published", accountId, res.PostId)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("advance after post: %w", err)
	}
	if len(advanced.ContentList) != 0 {
		p.metrics.ScheduleAdvanced()
	}
	cursor := advanced.Cursor
	res.Cursor = &cursor
	return res, nil
}

func (p *poster) publish(acct *dal.Account, text string) (*PostResult, error) {

	res := &PostResult{Content: text}
	entry := &dal.ExecutionLog{AccountId: acct.Id, PostContent: text}

	postId, pubErr := p.publisher.Publish(acct, text)
	if pubErr != nil {
		p.logger.Warnf("Failed to publish for account %d (%s): %v", acct.Id, acct.Name, pubErr)
		p.metrics.PostFailed()
		res.Message = pubErr.Error()
		entry.LogType = dal.LogTypeError
		entry.Status = dal.LogStatusError
		entry.Message = res.Message
	} else {
		p.logger.Infof("Published post %s for account %d", postId, acct.Id)
		p.metrics.PostPublished()
		res.Success = true
		res.PostId = postId
		entry.LogType = dal.LogTypePost
		entry.Status = dal.LogStatusSuccess
		entry.PostId = postId
		entry.Message = "posted"
	}

	// The post is out even if its account was deleted meanwhile
	if _, err := p.repo.AddExecutionLog(entry); errors.Is(err, dal.ErrNotFound) {
		p.logger.Warnf("Account %d was deleted during publishing; outcome not logged", acct.Id)
	} else if err != nil {
		return nil, fmt.Errorf("record post outcome: %w", err)
	}
	return res, nil
}
