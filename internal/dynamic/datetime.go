package dynamic

import (
	"strconv"
	"strings"
	"time"
)

// datetime implements $datetime/$localDatetime. args may be:
//   [] | [format] | [format offsetAmount offsetUnit]
// format is "iso8601" (default), "rfc1123", or a custom token string using
// YYYY/MM/DD/HH/mm/ss. withTZ selects ISO-8601's trailing "Z" designator.
func (r *Resolver) datetime(args []string, withTZ bool) string {
	now := time.Now().UTC()

	format := "iso8601"
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) >= 3 {
		amount, err := strconv.Atoi(args[1])
		if err == nil {
			now = now.Add(offsetDuration(amount, args[2]))
		}
	}

	switch format {
	case "iso8601":
		if withTZ {
			return now.Format("2006-01-02T15:04:05Z")
		}
		return now.Format("2006-01-02T15:04:05")
	case "rfc1123":
		return now.Format(time.RFC1123)
	default:
		return renderCustomFormat(format, now)
	}
}

func offsetDuration(amount int, unit string) time.Duration {
	d := time.Duration(amount)
	switch strings.ToLower(unit) {
	case "d", "day", "days":
		return d * 24 * time.Hour
	case "h", "hour", "hours":
		return d * time.Hour
	case "m", "minute", "minutes":
		return d * time.Minute
	case "s", "second", "seconds":
		return d * time.Second
	default:
		return 0
	}
}

// renderCustomFormat substitutes the small custom token set:
// YYYY, MM, DD, HH, mm, ss.
func renderCustomFormat(format string, t time.Time) string {
	replacer := strings.NewReplacer(
		"YYYY", pad(t.Year(), 4),
		"MM", pad(int(t.Month()), 2),
		"DD", pad(t.Day(), 2),
		"HH", pad(t.Hour(), 2),
		"mm", pad(t.Minute(), 2),
		"ss", pad(t.Second(), 2),
	)
	return replacer.Replace(format)
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
