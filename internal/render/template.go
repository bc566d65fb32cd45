package render

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"hookrelay/pkg/models"
)

const (
	DefaultTemplate   = "**{app}**: {title}\n{text}"
	DefaultTimeFormat = "2006-01-02 15:04:05"

	DefaultTitlePlaceholder = "(no title)"
	DefaultTextPlaceholder  = "(no text)"

	// DefaultSummaryLabel heads the description of an aggregated send.
	DefaultSummaryLabel = "{count} messages aggregated"
	// QuietReleaseLabel heads a summary of events held during quiet hours,
	// whose text already states how many were held.
	QuietReleaseLabel = "Held during quiet hours"
)

// Options is the rendering part of a settings snapshot.
type Options struct {
	UseEmbed         bool
	SummaryContent   bool
	Template         string
	MaxFieldLength   int
	DeviceName       string
	TimeFormat       string
	Location         *time.Location
	Attachments      bool
	TitlePlaceholder string
	TextPlaceholder  string
	// SummaryLabel replaces DefaultSummaryLabel; {count} is substituted.
	SummaryLabel string
}

func (o Options) withDefaults() Options {
	if o.Template == "" {
		o.Template = DefaultTemplate
	}
	if o.TimeFormat == "" {
		o.TimeFormat = DefaultTimeFormat
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.TitlePlaceholder == "" {
		o.TitlePlaceholder = DefaultTitlePlaceholder
	}
	if o.TextPlaceholder == "" {
		o.TextPlaceholder = DefaultTextPlaceholder
	}
	if o.SummaryLabel == "" {
		o.SummaryLabel = DefaultSummaryLabel
	}
	return o
}

// ApplyTemplate substitutes {app} {title} {text} {time} {package} in tpl.
// Substituted values are inserted verbatim and never re-expanded.
func ApplyTemplate(tpl string, ev models.Event, opts Options) string {
	opts = opts.withDefaults()

	r := strings.NewReplacer(
		"{app}", sourceLabel(ev),
		"{title}", orPlaceholder(ev.Title, opts.TitlePlaceholder),
		"{text}", orPlaceholder(ev.Text, opts.TextPlaceholder),
		"{time}", formatTime(ev.Timestamp, opts),
		"{package}", ev.SourceID,
	)
	return r.Replace(tpl)
}

// ShortSummary is the one-line "<source> · <title>" form, with a " [×N]"
// badge for aggregated sends.
func ShortSummary(ev models.Event, count int, opts Options) string {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString(sourceLabel(ev))
	b.WriteString(" · ")
	b.WriteString(oneLine(orPlaceholder(ev.Title, opts.TitlePlaceholder)))
	if count > 1 {
		b.WriteString(" [×")
		b.WriteString(strconv.Itoa(count))
		b.WriteString("]")
	}
	return Truncate(b.String(), MaxContentLength)
}

// Truncate cuts s to at most n code points.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func sourceLabel(ev models.Event) string {
	if name := strings.TrimSpace(ev.SourceName); name != "" {
		return name
	}
	return ev.SourceID
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatTime(t time.Time, opts Options) string {
	if t.IsZero() {
		return ""
	}
	return t.In(opts.Location).Format(opts.TimeFormat)
}
