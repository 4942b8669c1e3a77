package server

import (
	"bot_manager/dto"
	"bot_manager/logic"
	"bot_manager/shared"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gorilla/mux"
	"io"
	"net/http"
	"strconv"
)

const (
	apiKeyHeader      = "X-API-KEY"
	metricsAuthHeader = "Authorization"
	internalErrorStr  = "500 Internal Server Error"
	badRequestStr     = "400 Invalid Request"
	badApiKeyStr      = "401 Missing or Invalid API Key"
	badAuthorization  = "401 Missing or Invalid Authorization"
)

// Defines a single HTTP handler (endpoint)
type handlerDef struct {
	method  string
	pattern string
	handler func(http.ResponseWriter, *http.Request)
}

// IHandlerGroup groups together multiple HTTP handler definitions.
type IHandlerGroup interface {
	Prefix() string
	GroupDefs() []handlerDef
	AuthMW() func(next http.Handler) http.Handler
}

// Returns the JSON serialized object as the response body; handles errors.
func writeJsonResponse(logger shared.ILogger, w http.ResponseWriter, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	var respJson []byte
	if respJson, err = json.Marshal(resp); err != nil {
		logger.Warnf("Failed to serialize response: %v\n", err)
		http.Error(w, internalErrorStr, http.StatusInternalServerError)
		return
	}
	if _, err = fmt.Fprintln(w, string(respJson)); err != nil {
		logger.Warnf("Failed to write response: %v\n", err)
		http.Error(w, internalErrorStr, http.StatusInternalServerError)
		return
	}
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	resp := dto.ErrorResponse{Error: msg, RequestId: r.Header.Get(requestIdHeader)}
	respJson, _ := json.Marshal(resp)
	fmt.Fprintln(w, string(respJson))
}

// writeCommandError maps a command failure to an HTTP status.
func writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	var cmdErr *logic.CommandError
	if !errors.As(err, &cmdErr) {
		writeErrorResponse(w, r, internalErrorStr, http.StatusInternalServerError)
		return
	}
	code := http.StatusInternalServerError
	switch cmdErr.Kind {
	case logic.KindInvalid:
		code = http.StatusBadRequest
	case logic.KindNotFound:
		code = http.StatusNotFound
	}
	writeErrorResponse(w, r, cmdErr.Msg, code)
}

// readJson decodes the request body into obj; on failure it has already
// written the error response.
func readJson[T any](logger shared.ILogger, w http.ResponseWriter, r *http.Request, obj *T) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warnf("Failed to read request body: %v", err)
		writeErrorResponse(w, r, badRequestStr, http.StatusBadRequest)
		return false
	}
	if err = json.Unmarshal(body, obj); err != nil {
		logger.Infof("Invalid JSON in %s %s: %v", r.Method, r.URL.Path, err)
		writeErrorResponse(w, r, badRequestStr, http.StatusBadRequest)
		return false
	}
	return true
}

func pathId(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, r, badRequestStr, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryId reads an optional positive integer query parameter.
func queryId(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(str, 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, r, badRequestStr, http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}
