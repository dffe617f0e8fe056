package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ScriptLine 播客中的一句台词
type ScriptLine struct {
	Speaker string `json:"speaker" bson:"speaker"`
	Text    string `json:"text" bson:"text"`
}

// Script 有序的台词列表，顺序即播放顺序
type Script []ScriptLine

func (s Script) IsEmpty() bool {
	return len(s) == 0
}

// Speakers 按首次出现顺序返回去重后的发言人
func (s Script) Speakers() []string {
	var (
		seen = make(map[string]struct{})
		res  []string
	)
	for _, line := range s {
		if _, ok := seen[line.Speaker]; ok {
			continue
		}
		seen[line.Speaker] = struct{}{}
		res = append(res, line.Speaker)
	}
	return res
}

func (s Script) String() string {
	sb := strings.Builder{}
	for i, line := range s {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line.Speaker)
		sb.WriteString(": ")
		sb.WriteString(line.Text)
	}
	return sb.String()
}

func (s Script) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *Script) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		return s.scanBytes(src)
	case string:
		return s.scanBytes([]byte(src))
	case nil:
		*s = nil
		return nil
	}

	return fmt.Errorf("pq: cannot convert %T to Script", src)
}

func (s *Script) scanBytes(src []byte) error {
	if len(src) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(src, s)
}
