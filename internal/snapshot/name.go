// 包 snapshot：快照命名、存储后端与保存/枚举/加载
package snapshot

import (
	"errors"
	"path"
	"strings"
	"time"
	"unicode"
)

const (
	Ext         = ".geojson"
	stampLayout = "20060102_150405"
)

var ErrEmptyName = errors.New("snapshot name is empty after sanitizing")

// ID：快照标识，即存储中的文件名 <name>_<YYYYMMDD>_<HHMMSS>.geojson
type ID string

// SanitizeName：仅保留字母数字、空格、下划线与连字符，并去除尾部空白
func SanitizeName(name string) (string, error) {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	if out == "" {
		return "", ErrEmptyName
	}
	return out, nil
}

// FileName：按保存时刻拼接文件名（秒级精度，同名同秒覆盖）
func FileName(sanitized string, at time.Time) ID {
	return ID(sanitized + "_" + at.Format(stampLayout) + Ext)
}

// ParseTimestamp：解析文件名末尾的 _<date>_<time> 后缀
func ParseTimestamp(file string) (time.Time, bool) {
	base := strings.TrimSuffix(file, path.Ext(file))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	t, err := time.Parse(stampLayout, parts[len(parts)-2]+"_"+parts[len(parts)-1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayName：去掉时间戳后缀与扩展名
func DisplayName(id ID) string {
	s := strings.TrimSuffix(string(id), Ext)
	if _, ok := ParseTimestamp(string(id)); !ok {
		return s
	}
	parts := strings.Split(s, "_")
	return strings.Join(parts[:len(parts)-2], "_")
}

// validID：拒绝带路径成分的标识，避免越出快照目录
func validID(id ID) bool {
	s := string(id)
	return s != "" && !strings.ContainsAny(s, `/\`) && s != "." && s != ".." && strings.HasSuffix(s, Ext)
}
