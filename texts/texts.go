package texts

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed snippets
var fs embed.FS

type ITexts interface {
	Get(id string) string
	WithVals(id string, vals map[string]string) string
}

func NewTexts() ITexts {
	return &texts{}
}

type texts struct {
}

// Get returns the snippet stored as snippets/<id>.txt, or "" if there is none.
func (t *texts) Get(id string) string {
	fn := fmt.Sprintf("snippets/%s.txt", id)
	bytes, err := fs.ReadFile(fn)
	if err != nil {
		return ""
	}
	return string(bytes)
}

func (t *texts) WithVals(id string, vals map[string]string) string {
	res := t.Get(id)
	for ph, val := range vals {
		pattern := fmt.Sprintf("{{%s}}", ph)
		res = strings.ReplaceAll(res, pattern, val)
	}
	return res
}
