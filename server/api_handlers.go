package server

import (
	"bot_manager/dal"
	"bot_manager/dto"
	"bot_manager/logic"
	"bot_manager/shared"
	"net/http"
	"strconv"
)

type apiHandlerGroup struct {
	cfg    *shared.Config
	logger shared.ILogger
	cmds   logic.ICommands
}

func NewApiHandlerGroup(
	cfg *shared.Config,
	logger shared.ILogger,
	cmds logic.ICommands,
) IHandlerGroup {
	res := apiHandlerGroup{
		cfg:    cfg,
		logger: logger,
		cmds:   cmds,
	}
	return &res
}

func (hg *apiHandlerGroup) Prefix() string {
	return "/api"
}

func (hg *apiHandlerGroup) GroupDefs() []handlerDef {
	return []handlerDef{
		{"GET", "/accounts", func(w http.ResponseWriter, r *http.Request) { hg.getAccounts(w, r) }},
		{"POST", "/accounts", func(w http.ResponseWriter, r *http.Request) { hg.postAccount(w, r) }},
		{"PUT", "/accounts/{id}", func(w http.ResponseWriter, r *http.Request) { hg.putAccount(w, r) }},
		{"DELETE", "/accounts/{id}", func(w http.ResponseWriter, r *http.Request) { hg.deleteAccount(w, r) }},
		{"GET", "/accounts/{id}/config", func(w http.ResponseWriter, r *http.Request) { hg.getBotConfig(w, r) }},
		{"PUT", "/accounts/{id}/config", func(w http.ResponseWriter, r *http.Request) { hg.putBotConfig(w, r) }},
		{"POST", "/accounts/{id}/post", func(w http.ResponseWriter, r *http.Request) { hg.postNow(w, r) }},
		{"GET", "/replies", func(w http.ResponseWriter, r *http.Request) { hg.getReplies(w, r) }},
		{"POST", "/replies", func(w http.ResponseWriter, r *http.Request) { hg.postReply(w, r) }},
		{"DELETE", "/replies/{id}", func(w http.ResponseWriter, r *http.Request) { hg.deleteReply(w, r) }},
		{"POST", "/replies/last-seen", func(w http.ResponseWriter, r *http.Request) { hg.postLastSeen(w, r) }},
		{"POST", "/replies/reclaim", func(w http.ResponseWriter, r *http.Request) { hg.postReclaim(w, r) }},
		{"GET", "/schedules", func(w http.ResponseWriter, r *http.Request) { hg.getSchedules(w, r) }},
		{"POST", "/schedules/list", func(w http.ResponseWriter, r *http.Request) { hg.postScheduleList(w, r) }},
		{"POST", "/schedules/single", func(w http.ResponseWriter, r *http.Request) { hg.postScheduleSingle(w, r) }},
		{"POST", "/schedules/{account}/advance", func(w http.ResponseWriter, r *http.Request) { hg.postAdvance(w, r) }},
		{"POST", "/schedules/{account}/fire", func(w http.ResponseWriter, r *http.Request) { hg.postFire(w, r) }},
		{"GET", "/logs", func(w http.ResponseWriter, r *http.Request) { hg.getLogs(w, r) }},
		{"GET", "/dashboard", func(w http.ResponseWriter, r *http.Request) { hg.getDashboard(w, r) }},
		{"GET", "/settings", func(w http.ResponseWriter, r *http.Request) { hg.getSettings(w, r) }},
		{"PUT", "/settings", func(w http.ResponseWriter, r *http.Request) { hg.putSettings(w, r) }},
	}
}

func (hg *apiHandlerGroup) AuthMW() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return hg.authMW(next)
	}
}

func (hg *apiHandlerGroup) authMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var apiKey = r.Header.Get(apiKeyHeader)
		found := false
		for _, key := range hg.cfg.Secrets.ApiKeys {
			if secretMatches(apiKey, key) {
				found = true
			}
		}
		if !found {
			keyPart := apiKey
			if len(apiKey) > 4 {
				keyPart = apiKey[:4] + "..."
			}
			hg.logger.Warnf("API request with missing or invalid key '%s': %s", keyPart, r.URL.Path)
			writeErrorResponse(w, r, badApiKeyStr, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Secrets are write-only: responses never echo them.
func toAccountDto(acct *dal.Account) *dto.Account {
	return &dto.Account{
		Id:        acct.Id,
		Name:      acct.Name,
		Category:  acct.Category,
		Status:    acct.Status,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}
}

func fromAccountDto(a *dto.Account) *dal.Account {
	return &dal.Account{
		Id:                a.Id,
		Name:              a.Name,
		ApiKey:            a.ApiKey,
		ApiKeySecret:      a.ApiKeySecret,
		AccessToken:       a.AccessToken,
		AccessTokenSecret: a.AccessTokenSecret,
		Category:          a.Category,
		Status:            a.Status,
	}
}

func toBotConfigDto(bc *dal.BotConfig) *dto.BotConfig {
	return &dto.BotConfig{
		AccountId:           bc.AccountId,
		Enabled:             bc.Enabled,
		AutoPostEnabled:     bc.AutoPostEnabled,
		PostIntervalMinutes: bc.PostIntervalMinutes,
		PostTemplates:       bc.PostTemplates,
		Hashtags:            bc.Hashtags,
		CreatedAt:           bc.CreatedAt,
		UpdatedAt:           bc.UpdatedAt,
	}
}

func toReplyDto(rel *dal.ReplyRelationship) *dto.Reply {
	return &dto.Reply{
		Id:        rel.Id,
		Replier:   rel.Replier,
		Targets:   rel.Targets,
		Content:   rel.Content,
		Active:    rel.Active,
		LastSeen:  rel.LastSeen,
		CreatedAt: rel.CreatedAt,
		UpdatedAt: rel.UpdatedAt,
	}
}

func toScheduleDto(ss *dal.ScheduleSet) *dto.Schedule {
	return &dto.Schedule{
		Id:             ss.Id,
		AccountId:      ss.AccountId,
		PrimaryContent: ss.PrimaryContent,
		ContentList:    ss.ContentList,
		Cursor:         ss.Cursor,
		TimesSpec:      ss.TimesSpec,
		Active:         ss.Active,
		CreatedAt:      ss.CreatedAt,
		UpdatedAt:      ss.UpdatedAt,
	}
}

func toPostResultDto(res *logic.PostResult) *dto.PostResult {
	return &dto.PostResult{
		Success: res.Success,
		PostId:  res.PostId,
		Content: res.Content,
		Message: res.Message,
		Cursor:  res.Cursor,
	}
}

func (hg *apiHandlerGroup) getAccounts(w http.ResponseWriter, r *http.Request) {
	accts, err := hg.cmds.ListAccounts()
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	res := make([]*dto.Account, 0, len(accts))
	for _, acct := range accts {
		res = append(res, toAccountDto(acct))
	}
	writeJsonResponse(hg.logger, w, res)
}

func (hg *apiHandlerGroup) postAccount(w http.ResponseWriter, r *http.Request) {
	var body dto.Account
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	acct := fromAccountDto(&body)
	acct.Id = 0
	if _, err := hg.cmds.AddAccount(acct); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJsonResponse(hg.logger, w, toAccountDto(acct))
}

func (hg *apiHandlerGroup) putAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, "id")
	if !ok {
		return
	}
	var body dto.Account
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	acct := fromAccountDto(&body)
	acct.Id = id
	if err := hg.cmds.UpdateAccount(acct); err != nil {
		writeCommandError(w, r, err)
		return
	}
	stored, err := hg.cmds.GetAccount(id)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, toAccountDto(stored))
}

func (hg *apiHandlerGroup) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, "id")
	if !ok {
		return
	}
	hg.logger.Infof("DELETE /api/accounts/%d: Request received", id)
	if err := hg.cmds.DeleteAccount(id); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hg *apiHandlerGroup) getBotConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, "id")
	if !ok {
		return
	}
	bc, err := hg.cmds.GetBotConfig(id)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, toBotConfigDto(bc))
}

func (hg *apiHandlerGroup) putBotConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, "id")
	if !ok {
		return
	}
	var body dto.BotConfig
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	bc := &dal.BotConfig{
		AccountId:           id,
		Enabled:             body.Enabled,
		AutoPostEnabled:     body.AutoPostEnabled,
		PostIntervalMinutes: body.PostIntervalMinutes,
		PostTemplates:       body.PostTemplates,
		Hashtags:            body.Hashtags,
	}
	if err := hg.cmds.UpdateBotConfig(bc); err != nil {
		writeCommandError(w, r, err)
		return
	}
	stored, err := hg.cmds.GetBotConfig(id)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, toBotConfigDto(stored))
}

func (hg *apiHandlerGroup) postNow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, "id")
	if !ok {
		return
	}
	var body dto.PostRequest
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	res, err := hg.cmds.PostNow(id, body.Text)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, toPostResultDto(res))
}

func (hg *apiHandlerGroup) getReplies(w http.ResponseWriter, r *http.Request) {
	rels, err := hg.cmds.ListReplies()
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	res := make([]*dto.Reply, 0, len(rels))
	for _, rel := range rels {
		res = append(res, toReplyDto(rel))
	}
	writeJsonResponse(hg.logger, w, res)
}

func (hg *apiHandlerGroup) postReply(w http.ResponseWriter, r *http.Request) {
	var body dto.SaveReplyRequest
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	id, err := hg.cmds.SaveReply(body.Replier, body.Targets, body.Content)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJsonResponse(hg.logger, w, &dto.IdResponse{Id: id})
}

func (hg *apiHandlerGroup) deleteReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, "id")
	if !ok {
		return
	}
	if err := hg.cmds.DeleteReply(id); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hg *apiHandlerGroup) postLastSeen(w http.ResponseWriter, r *http.Request) {
	var body dto.LastSeenRequest
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	if err := hg.cmds.RecordLastSeen(body.Replier, body.Target, body.Value); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hg *apiHandlerGroup) postReclaim(w http.ResponseWriter, r *http.Request) {
	hg.logger.Info("POST /api/replies/reclaim: Request received")
	removed, err := hg.cmds.ReclaimOrphans()
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, &dto.ReclaimResponse{Removed: removed})
}

func (hg *apiHandlerGroup) getSchedules(w http.ResponseWriter, r *http.Request) {
	acctId, ok := queryId(w, r, "account")
	if !ok {
		return
	}
	scheds, err := hg.cmds.ListSchedules(acctId)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	res := make([]*dto.Schedule, 0, len(scheds))
	for _, ss := range scheds {
		res = append(res, toScheduleDto(ss))
	}
	writeJsonResponse(hg.logger, w, res)
}

func (hg *apiHandlerGroup) postScheduleList(w http.ResponseWriter, r *http.Request) {
	var body dto.ScheduleListRequest
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	if err := hg.cmds.SaveScheduleList(body.AccountId, body.TimesSpec, body.ContentList); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hg *apiHandlerGroup) postScheduleSingle(w http.ResponseWriter, r *http.Request) {
	var body dto.ScheduleSingleRequest
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	if err := hg.cmds.SaveScheduleSingle(body.AccountId, body.TimesSpec, body.Content); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hg *apiHandlerGroup) postAdvance(w http.ResponseWriter, r *http.Request) {
	acctId, ok := pathId(w, r, "account")
	if !ok {
		return
	}
	ss, err := hg.cmds.AdvanceSchedule(acctId)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, toScheduleDto(ss))
}

func (hg *apiHandlerGroup) postFire(w http.ResponseWriter, r *http.Request) {
	acctId, ok := pathId(w, r, "account")
	if !ok {
		return
	}
	res, err := hg.cmds.FireSchedule(acctId)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, toPostResultDto(res))
}

func (hg *apiHandlerGroup) getLogs(w http.ResponseWriter, r *http.Request) {
	acctId, ok := queryId(w, r, "account")
	if !ok {
		return
	}
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		if limit, err = strconv.Atoi(limitStr); err != nil || limit < 0 {
			writeErrorResponse(w, r, badRequestStr, http.StatusBadRequest)
			return
		}
	}
	logs, err := hg.cmds.ListLogs(acctId, limit)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	res := make([]*dto.ExecutionLog, 0, len(logs))
	for _, e := range logs {
		res = append(res, &dto.ExecutionLog{
			Id:          e.Id,
			AccountId:   e.AccountId,
			LogType:     e.LogType,
			Message:     e.Message,
			PostId:      e.PostId,
			PostContent: e.PostContent,
			Status:      e.Status,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJsonResponse(hg.logger, w, res)
}

func (hg *apiHandlerGroup) getDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := hg.cmds.GetDashboard()
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, &dto.Dashboard{
		TotalAccounts:  stats.TotalAccounts,
		ActiveAccounts: stats.ActiveAccounts,
		TodayPosts:     stats.TodayPosts,
		TotalPosts:     stats.TotalPosts,
		TodayErrors:    stats.TodayErrors,
	})
}

func (hg *apiHandlerGroup) getSettings(w http.ResponseWriter, r *http.Request) {
	us, err := hg.cmds.GetUserSettings()
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, &dto.UserSettings{
		PlanType:    us.PlanType,
		MaxAccounts: us.MaxAccounts,
		UpdatedAt:   us.UpdatedAt,
	})
}

func (hg *apiHandlerGroup) putSettings(w http.ResponseWriter, r *http.Request) {
	var body dto.UserSettings
	if !readJson(hg.logger, w, r, &body) {
		return
	}
	us := &dal.UserSettings{PlanType: body.PlanType, MaxAccounts: body.MaxAccounts}
	if err := hg.cmds.UpdateUserSettings(us); err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJsonResponse(hg.logger, w, &dto.UserSettings{
		PlanType:    us.PlanType,
		MaxAccounts: us.MaxAccounts,
		UpdatedAt:   us.UpdatedAt,
	})
}
