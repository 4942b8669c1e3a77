package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

type IMetrics interface {
	StartApiRequestIn(label string) IRequestObserver
	StartPublishRequestOut() IRequestObserver
	PostPublished()
	PostFailed()
	ScheduleAdvanced()
	OrphansReclaimed(count int)
	ActiveReplies(count int)
	Accounts(total, active int)
	ServiceStarted()
}

type IRequestObserver interface {
	Finish()
}

type metrics struct {
	apiRequestsIn      *prometheus.HistogramVec
	publishRequestsOut prometheus.Histogram
	postsPublished     prometheus.Counter
	postsFailed        prometheus.Counter
	schedulesAdvanced  prometheus.Counter
	orphansReclaimed   prometheus.Counter
	activeReplies      prometheus.Gauge
	accounts           *prometheus.GaugeVec
	serviceStarted     prometheus.Counter
}

func NewMetrics() IMetrics {

	res := metrics{}

	res.apiRequestsIn = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "api_requests_in_duration",
		Help: "Duration in seconds of API requests served.",
	}, []string{"label"})
	prometheus.Register(res.apiRequestsIn)

	res.publishRequestsOut = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "publish_requests_out_duration",
		Help: "Duration in seconds of requests to the posting relay.",
	})
	prometheus.Register(res.publishRequestsOut)

	res.postsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_published",
		Help: "Number of posts published",
	})
	prometheus.Register(res.postsPublished)

	res.postsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_failed",
		Help: "Number of posts that failed to publish",
	})
	prometheus.Register(res.postsFailed)

	res.schedulesAdvanced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedules_advanced",
		Help: "Number of times a schedule rotation cursor moved on",
	})
	prometheus.Register(res.schedulesAdvanced)

	res.orphansReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orphan_replies_reclaimed",
		Help: "Reply relationship rows deleted by reclaim sweeps",
	})
	prometheus.Register(res.orphansReclaimed)

	res.activeReplies = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_reply_relationships",
		Help: "Active reply relationships after the last sweep",
	})
	prometheus.Register(res.activeReplies)

	res.accounts = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bot_accounts",
		Help: "Managed accounts as of the last scrape",
	}, []string{"status"})
	prometheus.Register(res.accounts)

	res.serviceStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "service_started",
		Help: "Service has started up",
	})
	prometheus.Register(res.serviceStarted)

	return &res
}

type requestObserver struct {
	start   time.Time
	observe func(elapsed float64)
}

func (ro *requestObserver) Finish() {
	elapsed := float64(time.Now().UnixMilli()-ro.start.UnixMilli()) / 1000.0
	ro.observe(elapsed)
}

func (m *metrics) StartApiRequestIn(label string) IRequestObserver {
	return &requestObserver{time.Now(), m.apiRequestsIn.WithLabelValues(label).Observe}
}

func (m *metrics) StartPublishRequestOut() IRequestObserver {
	return &requestObserver{time.Now(), m.publishRequestsOut.Observe}
}

func (m *metrics) PostPublished() {
	m.postsPublished.Add(1)
}

func (m *metrics) PostFailed() {
	m.postsFailed.Add(1)
}

func (m *metrics) ScheduleAdvanced() {
	m.schedulesAdvanced.Add(1)
}

func (m *metrics) OrphansReclaimed(count int) {
	m.orphansReclaimed.Add(float64(count))
}

func (m *metrics) ActiveReplies(count int) {
	m.activeReplies.Set(float64(count))
}

func (m *metrics) Accounts(total, active int) {
	m.accounts.WithLabelValues("active").Set(float64(active))
	m.accounts.WithLabelValues("inactive").Set(float64(total - active))
}

func (m *metrics) ServiceStarted() {
	m.serviceStarted.Add(1)
}
