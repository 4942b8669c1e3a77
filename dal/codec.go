package dal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Multi-value columns hold JSON arrays. Id lists are arrays of integers; last-seen
// maps are arrays of "<id>:<value>" strings. A row whose id list cannot be decoded
// is treated as an orphan by the callers, never as a failed read.

// ErrCorruptEncoding is returned when a stored multi-value field does not decode.
var ErrCorruptEncoding = fmt.Errorf("corrupt encoded field")

const lastSeenSep = ":"

func EncodeIds(ids []int64) string {
	if ids == nil {
		ids = []int64{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func DecodeIds(token string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(token), &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEncoding, err)
	}
	if ids == nil {
		// JSON null
		return nil, fmt.Errorf("%w: null id list", ErrCorruptEncoding)
	}
	return ids, nil
}

// EncodeLastSeen writes entries in ascending id order so equal maps encode equally.
func EncodeLastSeen(m map[int64]string) string {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	entries := make([]string, len(keys))
	for i, k := range keys {
		entries[i] = strconv.FormatInt(k, 10) + lastSeenSep + m[k]
	}
	b, _ := json.Marshal(entries)
	return string(b)
}

// DecodeLastSeen splits each entry at its first separator; entries without a
// numeric id or without a value are dropped.
func DecodeLastSeen(token string) (map[int64]string, error) {
	res := make(map[int64]string)
	if strings.TrimSpace(token) == "" {
		return res, nil
	}
	var entries []string
	if err := json.Unmarshal([]byte(token), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEncoding, err)
	}
	for _, entry := range entries {
		key, val, found := strings.Cut(entry, lastSeenSep)
		if !found || val == "" {
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		res[id] = val
	}
	return res, nil
}

func EncodeStrings(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func DecodeStrings(token string) ([]string, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(token), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEncoding, err)
	}
	return items, nil
}

// uniqueIds drops repeated ids, keeping first occurrences in order.
func uniqueIds(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	res := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		res = append(res, id)
	}
	return res
}

func filterIds(ids []int64, keep func(id int64) bool) []int64 {
	res := make([]int64, 0, len(ids))
	for _, id := range ids {
		if keep(id) {
			res = append(res, id)
		}
	}
	return res
}
