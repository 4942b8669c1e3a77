package dal

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	DefaultCategory = "Free"
)

const (
	LogTypePost      = "tweet"
	LogTypeError     = "error"
	LogStatusSuccess = "success"
	LogStatusError   = "error"
)

type Account struct {
	Id                int64
	Name              string // unique display name
	ApiKey            string
	ApiKeySecret      string
	AccessToken       string
	AccessTokenSecret string
	Category          string // API plan, e.g. Free
	Status            string // active or inactive
	CreatedAt         string
	UpdatedAt         string
}

// ReplyRelationship says that Replier answers posts by any of Targets with Content.
// Only one row per replier is active; superseded rows stay for audit.
type ReplyRelationship struct {
	Id        int64
	Replier   int64
	Targets   []int64
	Content   string
	Active    bool
	LastSeen  map[int64]string // target account id => id of last processed post
	CreatedAt string
	UpdatedAt string
}

// ScheduleSet is the posting schedule of one account.
type ScheduleSet struct {
	Id             int64
	AccountId      int64
	PrimaryContent string
	ContentList    []string // nil for single-content schedules
	Cursor         int      // index into ContentList of the next post
	TimesSpec      string   // posting times, e.g. "09:00,18:30"
	Active         bool
	CreatedAt      string
	UpdatedAt      string
}

// CurrentContent returns the text the next scheduled post should carry.
func (ss *ScheduleSet) CurrentContent() string {
	if len(ss.ContentList) == 0 {
		return ss.PrimaryContent
	}
	ix := ss.Cursor
	if ix < 0 || ix >= len(ss.ContentList) {
		ix = 0
	}
	return ss.ContentList[ix]
}

type ExecutionLog struct {
	Id          int64
	AccountId   int64
	LogType     string
	Message     string
	PostId      string
	PostContent string
	Status      string
	CreatedAt   string
}

type DashboardStats struct {
	TotalAccounts  int
	ActiveAccounts int
	TodayPosts     int
	TotalPosts     int
	TodayErrors    int
}

// ReclaimStats reports what one orphan sweep removed or repaired.
type ReclaimStats struct {
	DeletedByOwner   int // rows whose replier account is gone
	DeletedByTargets int // active rows whose targets were all gone or unreadable
	Shrunk           int // active rows rewritten with a smaller target set
}

func (rs *ReclaimStats) Total() int {
	return rs.DeletedByOwner + rs.DeletedByTargets
}

// BotConfig holds the per-account automation switches. Every account has one,
// created together with the account.
type BotConfig struct {
	Id                  int64
	AccountId           int64
	Enabled             bool
	AutoPostEnabled     bool
	PostIntervalMinutes int
	PostTemplates       string // free-form, as entered by the user
	Hashtags            string
	CreatedAt           string
	UpdatedAt           string
}

const (
	PlanStarter = "starter"
	PlanBasic   = "basic"
	PlanPro     = "pro"
)

const DefaultUserId = "default"

// UserSettings is the single row describing the operator's plan.
type UserSettings struct {
	Id          int64
	UserId      string
	PlanType    string
	MaxAccounts int
	CreatedAt   string
	UpdatedAt   string
}
