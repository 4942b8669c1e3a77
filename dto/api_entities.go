package dto

type Account struct {
	Id                int64  `json:"id"`
	Name              string `json:"name"`
	ApiKey            string `json:"api_key,omitempty"`
	ApiKeySecret      string `json:"api_key_secret,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	AccessTokenSecret string `json:"access_token_secret,omitempty"`
	Category          string `json:"category"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

type BotConfig struct {
	AccountId           int64  `json:"account_id"`
	Enabled             bool   `json:"is_enabled"`
	AutoPostEnabled     bool   `json:"auto_post_enabled"`
	PostIntervalMinutes int    `json:"post_interval_minutes"`
	PostTemplates       string `json:"post_templates"`
	Hashtags            string `json:"hashtags"`
	CreatedAt           string `json:"created_at,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

type UserSettings struct {
	PlanType    string `json:"plan_type"`
	MaxAccounts int    `json:"max_accounts"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type Reply struct {
	Id        int64            `json:"id"`
	Replier   int64            `json:"replier"`
	Targets   []int64          `json:"targets"`
	Content   string           `json:"content"`
	Active    bool             `json:"active"`
	LastSeen  map[int64]string `json:"last_seen"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

type SaveReplyRequest struct {
	Replier int64   `json:"replier"`
	Targets []int64 `json:"targets"`
	Content string  `json:"content"`
}

type LastSeenRequest struct {
	Replier int64  `json:"replier"`
	Target  int64  `json:"target"`
	Value   string `json:"value"`
}

type Schedule struct {
	Id             int64    `json:"id"`
	AccountId      int64    `json:"account_id"`
	PrimaryContent string   `json:"primary_content"`
	ContentList    []string `json:"content_list,omitempty"`
	Cursor         int      `json:"cursor"`
	TimesSpec      string   `json:"times_spec"`
	Active         bool     `json:"active"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type ScheduleListRequest struct {
	AccountId   int64    `json:"account_id"`
	TimesSpec   string   `json:"times_spec"`
	ContentList []string `json:"content_list"`
}

type ScheduleSingleRequest struct {
	AccountId int64  `json:"account_id"`
	TimesSpec string `json:"times_spec"`
	Content   string `json:"content"`
}

type PostRequest struct {
	Text string `json:"text"`
}

type PostResult struct {
	Success bool   `json:"success"`
	PostId  string `json:"post_id,omitempty"`
	Content string `json:"content"`
	Message string `json:"message,omitempty"`
	Cursor  *int   `json:"cursor,omitempty"`
}

type ExecutionLog struct {
	Id          int64  `json:"id"`
	AccountId   int64  `json:"account_id"`
	LogType     string `json:"log_type"`
	Message     string `json:"message"`
	PostId      string `json:"post_id"`
	PostContent string `json:"post_content"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type Dashboard struct {
	TotalAccounts  int `json:"total_accounts"`
	ActiveAccounts int `json:"active_accounts"`
	TodayPosts     int `json:"today_posts"`
	TotalPosts     int `json:"total_posts"`
	TodayErrors    int `json:"today_errors"`
}

type IdResponse struct {
	Id int64 `json:"id"`
}

type ReclaimResponse struct {
	Removed int `json:"removed"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestId string `json:"request_id,omitempty"`
}

// Body of a post request sent to the posting relay.
type RelayPostRequest struct {
	Account string `json:"account"`
	Text    string `json:"text"`
}

type RelayPostResponse struct {
	Id string `json:"id"`
}
