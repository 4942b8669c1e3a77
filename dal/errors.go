package dal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

const (
	VeReplyContentEmpty   = "reply_content_empty"
	VeReplyTargetsEmpty   = "reply_targets_empty"
	VeReplierMissing      = "replier_missing"
	VeReplyTargetMissing  = "reply_target_missing"
	VeScheduleAcctMissing = "schedule_account_missing"
	VeAccountIdMissing    = "account_id_missing"
	VeAccountNameInvalid  = "account_name_invalid"
	VeAccountNameTaken    = "account_name_taken"
	VeAccountSecretEmpty  = "account_secret_empty"
	VeAccountStatusBad    = "account_status_invalid"
	VePostTextEmpty       = "post_text_empty"
	VeAccountLimit        = "account_limit_reached"
	VeBotIntervalBad      = "bot_interval_invalid"
	VePlanBad             = "plan_invalid"
	VeMaxAccountsBad      = "max_accounts_invalid"
)

// ValidationError means caller input broke a precondition. Code identifies the
// rule; Vals carries the offending values for rendering a message.
type ValidationError struct {
	Code string
	Vals map[string]string
}

func NewValidationError(code string, keyvals ...string) *ValidationError {
	ve := &ValidationError{Code: code, Vals: map[string]string{}}
	for i := 0; i+1 < len(keyvals); i += 2 {
		ve.Vals[keyvals[i]] = keyvals[i+1]
	}
	return ve
}

func (ve *ValidationError) Error() string {
	if len(ve.Vals) == 0 {
		return "validation failed: " + ve.Code
	}
	keys := make([]string, 0, len(ve.Vals))
	for k := range ve.Vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, ve.Vals[k])
	}
	return fmt.Sprintf("validation failed: %s (%s)", ve.Code, strings.Join(parts, ", "))
}

func IsValidationError(err error) bool {
	_, ok := AsValidationError(err)
	return ok
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
