package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/godilite/helpdesk-kpi/internal/repository/models"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrBadDuration  = errors.New("unrecognized duration")
	ErrBadTimestamp = errors.New("unrecognized timestamp")
)

// Fold lower-cases s, strips diacritics and collapses inner whitespace.
// It is the comparison form for headers and rating labels.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

// NormalizeKey turns a ticket identifier of any cell type into the join key
// used on both sides of the survey join. Numeric identifiers lose padding
// zeros and a trailing ".0"; text identifiers are trimmed and upper-cased.
func NormalizeKey(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return strings.ToUpper(s)
}

func isNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	if strings.ContainsAny(s, "eE") && !strings.Contains(s, ".") {
		return false
	}
	return strings.ContainsAny(s, "0123456789")
}

// ParseDuration reads numeric minutes ("12", "12,5") or clock text
// ("01:02:03", "75:00:00", "12:30") into minutes. Blank cells yield nil.
func ParseDuration(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return nil, nil
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadDuration, raw)
		}
		var secs float64
		for i, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrBadDuration, raw)
			}
			switch i {
			case 0:
				secs += n * 3600
			case 1:
				secs += n * 60
			case 2:
				secs += n
			}
		}
		m := secs / 60
		return &m, nil
	}

	n, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%w: %q", ErrBadDuration, raw)
	}
	return &n, nil
}

// ParseCellDuration reads a spreadsheet duration given its raw value and
// its formatted text. A numeric day fraction shown as a clock ("00:15:00",
// "[h]:mm") is converted to minutes; anything else goes through ParseDuration.
func ParseCellDuration(raw, shown string) (*float64, error) {
	r := strings.TrimSpace(raw)
	if clockText(shown) && isNumeric(r) {
		days, err := strconv.ParseFloat(r, 64)
		if err == nil && days >= 0 {
			m := days * 24 * 60
			return &m, nil
		}
	}
	return ParseDuration(raw)
}

// clockText reports whether s is a bare time of day or elapsed time, with
// no date part.
func clockText(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ':', r == '.', r == ',', r == ' ':
		case r == 'A', r == 'P', r == 'M', r == 'a', r == 'p', r == 'm':
		default:
			return false
		}
	}
	return true
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// ParseTimestamp accepts Excel serial dates and the textual layouts seen in
// the exports (ISO and day-first). Blank cells yield the zero time.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 || serial > 2958465 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
}

var (
	yesValues = map[string]bool{
		"sim": true, "s": true, "yes": true, "y": true, "true": true,
		"verdadeiro": true, "1": true, "x": true, "expirado": true,
	}
	noValues = map[string]bool{
		"nao": true, "n": true, "no": true, "false": true, "falso": true,
		"0": true, "no prazo": true, "dentro do prazo": true, "nao expirado": true,
	}
)

var (
	breachWords = map[string]bool{"expirado": true, "fora do prazo": true, "violado": true}
	metWords    = map[string]bool{"no prazo": true, "dentro do prazo": true, "nao expirado": true, "cumprido": true}
)

// ParseSLAExpired reads an SLA cell as "expired". Wording that names the
// outcome ("Expirado", "No prazo") is taken as is. Otherwise the cell is a
// yes/no or 0/1/100 value answering the column's question, which is
// "was it met?" when met is true and "did it expire?" when false.
func ParseSLAExpired(raw string, met bool) models.Flag {
	v := Fold(raw)
	switch {
	case v == "":
		return models.FlagUnknown
	case breachWords[v]:
		return models.FlagYes
	case metWords[v]:
		return models.FlagNo
	}

	answer := ParseFlag(v)
	if n, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err == nil {
		switch n {
		case 0:
			answer = models.FlagNo
		case 1, 100:
			answer = models.FlagYes
		default:
			answer = models.FlagUnknown
		}
	}
	if !met || answer == models.FlagUnknown {
		return answer
	}
	if answer == models.FlagYes {
		return models.FlagNo
	}
	return models.FlagYes
}

// ParseFlag maps the yes/no spellings found in the exports onto a Flag.
func ParseFlag(raw string) models.Flag {
	v := Fold(raw)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		v = strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch {
	case yesValues[v]:
		return models.FlagYes
	case noValues[v]:
		return models.FlagNo
	default:
		return models.FlagUnknown
	}
}
