package test

import (
	"bot_manager/dal"
	"strconv"
)

func accountNamed(name string) func(x any) bool {
	res := func(x any) bool {
		acct, ok := x.(*dal.Account)
		if !ok {
			return false
		}
		return acct.Name == name
	}
	return res
}

func intPtr(v int) *int {
	return &v
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
