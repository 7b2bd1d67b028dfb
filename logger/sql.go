package logger

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const escaper = "'"

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// Literal renders v the way it would be written in Oracle SQL, for logs.
func Literal(v interface{}) string {
	if valuer, ok := v.(driver.Valuer); ok {
		v, _ = valuer.Value()
	}

	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return escaper + v.Format("2006-01-02 15:04:05") + escaper
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return escaper + v.Format("2006-01-02 15:04:05") + escaper
	case []byte:
		if isPrintable(v) {
			return escaper + strings.ReplaceAll(string(v), escaper, escaper+escaper) + escaper
		}
		return escaper + "<binary>" + escaper
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float64, float32:
		return fmt.Sprintf("%.6f", v)
	case string:
		return escaper + strings.ReplaceAll(v, escaper, escaper+escaper) + escaper
	}
	return escaper + strings.ReplaceAll(fmt.Sprint(v), escaper, escaper+escaper) + escaper
}

// ExplainSQL substitutes bind placeholders with literals. A numeric
// placeholder :n takes vars[n-1], a named one takes named[name], and any
// other placeholder takes the next positional var, as Oracle binds by
// position. Placeholders inside quotes or comments are left alone, as are
// ones with no value.
func ExplainSQL(sql string, vars []interface{}, named map[string]interface{}) string {
	runes := []rune(sql)
	next := 0

	var out strings.Builder
	out.Grow(len(sql))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			end := i + 1
			for end < len(runes) && runes[end] != r {
				end++
			}
			if end >= len(runes) {
				end = len(runes) - 1
			}
			out.WriteString(string(runes[i : end+1]))
			i = end
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			end := i
			for end < len(runes) && runes[end] != '\n' {
				end++
			}
			out.WriteString(string(runes[i:end]))
			i = end - 1
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end := strings.Index(string(runes[i+2:]), "*/")
			if end < 0 {
				out.WriteString(string(runes[i:]))
				i = len(runes)
				continue
			}
			block := "/*" + string(runes[i+2:])[:end] + "*/"
			out.WriteString(block)
			i += len([]rune(block)) - 1
		case r == ':' && i+1 < len(runes) && isBindChar(runes[i+1]):
			end := i + 1
			for end < len(runes) && isBindChar(runes[end]) {
				end++
			}
			name := string(runes[i+1 : end])
			if lit, ok := lookupBind(name, vars, named, &next); ok {
				out.WriteString(lit)
			} else {
				out.WriteString(string(runes[i:end]))
			}
			i = end - 1
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func isBindChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lookupBind(name string, vars []interface{}, named map[string]interface{}, next *int) (string, bool) {
	if n, err := strconv.Atoi(name); err == nil {
		if n >= 1 && n <= len(vars) {
			return Literal(vars[n-1]), true
		}
		return "", false
	}
	if v, ok := named[name]; ok {
		return Literal(v), true
	}
	if *next < len(vars) {
		v := vars[*next]
		*next++
		return Literal(v), true
	}
	return "", false
}
