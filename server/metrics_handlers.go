package server

import (
	"bot_manager/logic"
	"bot_manager/shared"
	"crypto/subtle"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"strings"
)

// scrapeHandlerGroup serves the prometheus endpoint. Store-backed gauges are
// refreshed from the dashboard figures right before each scrape.
type scrapeHandlerGroup struct {
	cfg         *shared.Config
	logger      shared.ILogger
	cmds        logic.ICommands
	metrics     logic.IMetrics
	promHandler http.Handler
}

func NewMetricsHandlerGroup(
	cfg *shared.Config,
	logger shared.ILogger,
	cmds logic.ICommands,
	metrics logic.IMetrics,
) IHandlerGroup {
	res := scrapeHandlerGroup{
		cfg:         cfg,
		logger:      logger,
		cmds:        cmds,
		metrics:     metrics,
		promHandler: promhttp.Handler(),
	}
	return &res
}

func (hg *scrapeHandlerGroup) Prefix() string {
	return "/"
}

func (hg *scrapeHandlerGroup) GroupDefs() []handlerDef {
	return []handlerDef{
		{"GET", "/metrics", func(w http.ResponseWriter, r *http.Request) { hg.getScrape(w, r) }},
	}
}

func (hg *scrapeHandlerGroup) AuthMW() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return hg.bearerMW(next)
	}
}

func (hg *scrapeHandlerGroup) bearerMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, hasBearer := strings.CutPrefix(r.Header.Get(metricsAuthHeader), "Bearer ")
		if !hasBearer || !secretMatches(token, hg.cfg.Secrets.MetricsAuth) {
			hg.logger.Warnf("Scrape of %s rejected: missing or invalid bearer token", r.URL.Path)
			writeErrorResponse(w, r, badAuthorization, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secretMatches compares in constant time. An empty secret never matches.
func secretMatches(given, secret string) bool {
	if given == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(secret)) == 1
}

func (hg *scrapeHandlerGroup) getScrape(w http.ResponseWriter, r *http.Request) {
	if stats, err := hg.cmds.GetDashboard(); err != nil {
		hg.logger.Warnf("Serving scrape with stale account gauges: %v", err)
	} else {
		hg.metrics.Accounts(stats.TotalAccounts, stats.ActiveAccounts)
	}
	hg.promHandler.ServeHTTP(w, r)
}
