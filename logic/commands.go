package logic

import (
	"bot_manager/dal"
	"bot_manager/shared"
	"bot_manager/texts"
	"errors"
)

// ICommands is the operation surface the API exposes. Every error it returns
// is a *CommandError whose message can be shown to the user as is.
type ICommands interface {
	AddAccount(acct *dal.Account) (int64, error)
	UpdateAccount(acct *dal.Account) error
	GetAccount(id int64) (*dal.Account, error)
	ListAccounts() ([]*dal.Account, error)
	DeleteAccount(id int64) error
	GetBotConfig(accountId int64) (*dal.BotConfig, error)
	UpdateBotConfig(bc *dal.BotConfig) error
	GetUserSettings() (*dal.UserSettings, error)
	UpdateUserSettings(us *dal.UserSettings) error

	SaveReply(replier int64, targets []int64, content string) (int64, error)
	ListReplies() ([]*dal.ReplyRelationship, error)
	DeleteReply(id int64) error
	RecordLastSeen(replier, target int64, value string) error
	ReclaimOrphans() (int, error)

	SaveScheduleList(accountId int64, timesSpec string, contentList []string) error
	SaveScheduleSingle(accountId int64, timesSpec, content string) error
	AdvanceSchedule(accountId int64) (*dal.ScheduleSet, error)
	ListSchedules(accountId *int64) ([]*dal.ScheduleSet, error)

	PostNow(accountId int64, text string) (*PostResult, error)
	FireSchedule(accountId int64) (*PostResult, error)

	ListLogs(accountId *int64, limit int) ([]*dal.ExecutionLog, error)
	GetDashboard() (*dal.DashboardStats, error)
}

type ErrorKind int

const (
	KindInvalid ErrorKind = iota + 1
	KindNotFound
	KindInternal
)

type CommandError struct {
	Kind  ErrorKind
	Msg   string
	cause error
}

func (e *CommandError) Error() string {
	return e.Msg
}

func (e *CommandError) Unwrap() error {
	return e.cause
}

type commands struct {
	logger  shared.ILogger
	clock   shared.IClock
	texts   texts.ITexts
	repo    dal.IRepo
	poster  IPoster
	metrics IMetrics
}

func NewCommands(
	logger shared.ILogger,
	clock shared.IClock,
	texts texts.ITexts,
	repo dal.IRepo,
	poster IPoster,
	metrics IMetrics,
) ICommands {
	return &commands{logger, clock, texts, repo, poster, metrics}
}

// fail turns a store error into a *CommandError; what names the missing thing
// for not-found messages.
func (c *commands) fail(err error, what string) error {
	if ve, ok := dal.AsValidationError(err); ok {
		msg := c.texts.WithVals(ve.Code, ve.Vals)
		if msg == "" {
			msg = ve.Error()
		}
		return &CommandError{KindInvalid, msg, err}
	}
	if errors.Is(err, dal.ErrNotFound) {
		msg := c.texts.WithVals("not_found", map[string]string{"what": what})
		return &CommandError{KindNotFound, msg, err}
	}
	c.logger.Errorf("Command failed: %v", err)
	return &CommandError{KindInternal, c.texts.Get("internal"), err}
}

func (c *commands) AddAccount(acct *dal.Account) (int64, error) {
	id, err := c.repo.AddAccount(acct)
	if err != nil {
		return 0, c.fail(err, "account")
	}
	c.logger.Infof("Added account %d (%s)", id, acct.Name)
	return id, nil
}

func (c *commands) UpdateAccount(acct *dal.Account) error {
	if err := c.repo.UpdateAccount(acct); err != nil {
		return c.fail(err, "account")
	}
	return nil
}

func (c *commands) GetAccount(id int64) (*dal.Account, error) {
	acct, err := c.repo.GetAccount(id)
	if err != nil {
		return nil, c.fail(err, "account")
	}
	return acct, nil
}

func (c *commands) ListAccounts() ([]*dal.Account, error) {
	accts, err := c.repo.GetAccounts()
	if err != nil {
		return nil, c.fail(err, "account")
	}
	return accts, nil
}

func (c *commands) DeleteAccount(id int64) error {
	if err := c.repo.DeleteAccount(id); err != nil {
		return c.fail(err, "account")
	}
	c.updateActiveRepliesGauge()
	return nil
}

func (c *commands) GetBotConfig(accountId int64) (*dal.BotConfig, error) {
	bc, err := c.repo.GetBotConfig(accountId)
	if err != nil {
		return nil, c.fail(err, "account")
	}
	return bc, nil
}

func (c *commands) UpdateBotConfig(bc *dal.BotConfig) error {
	if err := c.repo.UpdateBotConfig(bc); err != nil {
		return c.fail(err, "account")
	}
	return nil
}

func (c *commands) GetUserSettings() (*dal.UserSettings, error) {
	us, err := c.repo.GetUserSettings()
	if err != nil {
		return nil, c.fail(err, "user settings")
	}
	return us, nil
}

func (c *commands) UpdateUserSettings(us *dal.UserSettings) error {
	if err := c.repo.UpdateUserSettings(us); err != nil {
		return c.fail(err, "user settings")
	}
	c.logger.Infof("Plan set to %s with at most %d accounts", us.PlanType, us.MaxAccounts)
	return nil
}

func (c *commands) SaveReply(replier int64, targets []int64, content string) (int64, error) {
	id, err := c.repo.SaveReply(replier, targets, content)
	if err != nil {
		return 0, c.fail(err, "account")
	}
	return id, nil
}

func (c *commands) ListReplies() ([]*dal.ReplyRelationship, error) {
	rels, err := c.repo.GetActiveReplies()
	if err != nil {
		return nil, c.fail(err, "reply")
	}
	return rels, nil
}

func (c *commands) DeleteReply(id int64) error {
	if err := c.repo.DeleteReply(id); err != nil {
		return c.fail(err, "reply")
	}
	return nil
}

func (c *commands) RecordLastSeen(replier, target int64, value string) error {
	if err := c.repo.RecordLastSeen(replier, target, value); err != nil {
		return c.fail(err, "active reply")
	}
	return nil
}

// ReclaimOrphans runs a sweep and returns how many active relationships it removed.
func (c *commands) ReclaimOrphans() (int, error) {
	before, err := c.repo.CountActiveReplies()
	if err != nil {
		return 0, c.fail(err, "reply")
	}
	stats, err := c.repo.Reclaim()
	if err != nil {
		return 0, c.fail(err, "reply")
	}
	after, err := c.repo.CountActiveReplies()
	if err != nil {
		return 0, c.fail(err, "reply")
	}
	c.metrics.OrphansReclaimed(stats.Total())
	c.metrics.ActiveReplies(after)
	return before - after, nil
}

func (c *commands) SaveScheduleList(accountId int64, timesSpec string, contentList []string) error {
	if err := c.repo.SaveScheduleList(accountId, timesSpec, contentList); err != nil {
		return c.fail(err, "account")
	}
	return nil
}

func (c *commands) SaveScheduleSingle(accountId int64, timesSpec, content string) error {
	if err := c.repo.SaveScheduleSingle(accountId, timesSpec, content); err != nil {
		return c.fail(err, "account")
	}
	return nil
}

func (c *commands) AdvanceSchedule(accountId int64) (*dal.ScheduleSet, error) {
	sched, err := c.repo.AdvanceSchedule(accountId)
	if err != nil {
		return nil, c.fail(err, "active schedule")
	}
	if len(sched.ContentList) != 0 {
		c.metrics.ScheduleAdvanced()
	}
	return sched, nil
}

func (c *commands) ListSchedules(accountId *int64) ([]*dal.ScheduleSet, error) {
	scheds, err := c.repo.GetActiveSchedules(accountId)
	if err != nil {
		return nil, c.fail(err, "schedule")
	}
	return scheds, nil
}

func (c *commands) PostNow(accountId int64, text string) (*PostResult, error) {
	res, err := c.poster.PostNow(accountId, text)
	if err != nil {
		return nil, c.fail(err, "account")
	}
	return res, nil
}

func (c *commands) FireSchedule(accountId int64) (*PostResult, error) {
	res, err := c.poster.FireSchedule(accountId)
	if err != nil {
		return nil, c.fail(err, "active schedule")
	}
	return res, nil
}

func (c *commands) ListLogs(accountId *int64, limit int) ([]*dal.ExecutionLog, error) {
	logs, err := c.repo.GetExecutionLogs(accountId, limit)
	if err != nil {
		return nil, c.fail(err, "log")
	}
	return logs, nil
}

func (c *commands) GetDashboard() (*dal.DashboardStats, error) {
	// Timestamps start with the UTC date
	today := c.clock.Now()[:len("2006-01-02")]
	stats, err := c.repo.GetDashboardStats(today)
	if err != nil {
		return nil, c.fail(err, "dashboard")
	}
	return stats, nil
}

func (c *commands) updateActiveRepliesGauge() {
	count, err := c.repo.CountActiveReplies()
	if err != nil {
		c.logger.Warnf("Failed to count active replies: %v", err)
		return
	}
	c.metrics.ActiveReplies(count)
}
