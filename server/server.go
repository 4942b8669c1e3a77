package server

import (
	"bot_manager/logic"
	"bot_manager/shared"
	"context"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const requestIdHeader = "X-Request-Id"

func NewHTTPServer(cfg *shared.Config, logger shared.ILogger, lc fx.Lifecycle, router *mux.Router) *http.Server {
	addStr := ":" + strconv.FormatUint(uint64(cfg.ServicePort), 10)
	srv := &http.Server{Addr: addStr, Handler: trimSlashHandler(router)}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Printf("Starting HTTP server at %v", srv.Addr)
			go srv.Serve(listener)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Printf("Shutting down HTTP server")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

func trimSlashHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			r.URL.Path = strings.TrimSuffix(r.URL.Path, "/")
		}
		next.ServeHTTP(w, r)
	})
}

func NewMux(groups []IHandlerGroup, logger shared.ILogger, metrics logic.IMetrics) *mux.Router {
	router := mux.NewRouter()
	for _, group := range groups {
		subRouter := router.PathPrefix(group.Prefix()).Subrouter()
		subRouter.Use(requestIdMW(logger))
		subRouter.Use(noCacheMW)
		subRouter.Use(group.AuthMW())
		for _, def := range group.GroupDefs() {
			handler := timedHandler(metrics, def)
			subRouter.HandleFunc(def.pattern, handler).Methods("OPTIONS", def.method)
		}
	}
	return router
}

func timedHandler(metrics logic.IMetrics, def handlerDef) func(http.ResponseWriter, *http.Request) {
	label := def.method + " " + def.pattern
	return func(w http.ResponseWriter, r *http.Request) {
		obs := metrics.StartApiRequestIn(label)
		defer obs.Finish()
		def.handler(w, r)
	}
}

// requestIdMW tags every request with an id, taken from the caller if present.
func requestIdMW(logger shared.ILogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqId := r.Header.Get(requestIdHeader)
			if reqId == "" {
				reqId = uuid.NewString()
				r.Header.Set(requestIdHeader, reqId)
			}
			w.Header().Set(requestIdHeader, reqId)
			logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "id", reqId)
			next.ServeHTTP(w, r)
		})
	}
}

func noCacheMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
