package render

import (
	"strconv"
	"strings"

	"hookrelay/pkg/models"
)

const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxEmbedTotal        = 6000
	MaxContentLength     = 2000
	MaxFooterLength      = 2048
	MaxFields            = 25

	MinFieldLength     = 200
	MaxFieldLength     = 1000
	ContinuedFieldName = "(continued)"
)

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      Footer
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Footer struct {
	Text string
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is the rendered form of one dispatch.
type Message struct {
	Content    string
	Embeds     []Embed
	Attachment *Attachment
}

// Size is the character count used against MaxEmbedTotal.
func (e Embed) Size() int {
	n := runeLen(e.Title) + runeLen(e.Description) + runeLen(e.Footer.Text)
	for _, f := range e.Fields {
		n += runeLen(f.Name) + runeLen(f.Value)
	}
	return n
}

// Render builds the message for ev. count > 1 marks an aggregated or
// quiet-hours summary send; those never carry an attachment.
func Render(ev models.Event, count int, opts Options, att *Attachment) Message {
	opts = opts.withDefaults()

	msg := Message{}
	if opts.UseEmbed {
		if opts.SummaryContent {
			msg.Content = ShortSummary(ev, count, opts)
		}
		msg.Embeds = []Embed{BuildEmbed(ev, count, opts)}
	} else {
		msg.Content = Truncate(ApplyTemplate(opts.Template, ev, opts), MaxContentLength)
	}

	if att != nil && count <= 1 && opts.Attachments {
		msg.Attachment = att
	}
	return msg
}

// BuildEmbed lays out the event into a size-bounded embed. Bounds are
// applied in order: title, description, footer, continuation fields, total.
func BuildEmbed(ev models.Event, count int, opts Options) Embed {
	opts = opts.withDefaults()

	e := Embed{
		Title: Truncate(oneLine(orPlaceholder(ev.Title, opts.TitlePlaceholder)), MaxTitleLength),
		Color: SourceColor(ev.SourceID),
	}

	prefix := ""
	if count > 1 {
		prefix = strings.ReplaceAll(opts.SummaryLabel, "{count}", strconv.Itoa(count)) + "\n\n"
	}
	body := orPlaceholder(ev.Text, opts.TextPlaceholder)

	head, rest := splitChunk(body, MaxDescriptionLength-runeLen(prefix))
	e.Description = prefix + head

	// The footer takes what title and description leave, up to its own cap.
	footerLimit := min(MaxFooterLength, MaxEmbedTotal-runeLen(e.Title)-runeLen(e.Description))
	e.Footer.Text = Truncate(footerText(ev, opts), footerLimit)

	limit := clampFieldLength(opts.MaxFieldLength)
	used := e.Size()
	for rest != "" && len(e.Fields) < MaxFields {
		var chunk string
		chunk, rest = splitChunk(rest, limit)
		f := Field{Name: ContinuedFieldName, Value: chunk}
		n := runeLen(f.Name) + runeLen(f.Value)
		if used+n > MaxEmbedTotal {
			break
		}
		e.Fields = append(e.Fields, f)
		used += n
	}

	return e
}

func footerText(ev models.Event, opts Options) string {
	ts := formatTime(ev.Timestamp, opts)
	device := strings.TrimSpace(opts.DeviceName)
	switch {
	case device == "":
		return ts
	case ts == "":
		return device
	default:
		return device + " · " + ts
	}
}

func clampFieldLength(n int) int {
	if n == 0 {
		n = MaxFieldLength
	}
	if n < MinFieldLength {
		return MinFieldLength
	}
	if n > MaxFieldLength {
		return MaxFieldLength
	}
	return n
}

// splitChunk takes up to limit code points off the front of s, cutting at
// the last newline inside that span when there is one. The newline itself
// is consumed.
func splitChunk(s string, limit int) (string, string) {
	if limit <= 0 {
		return "", s
	}
	if runeLen(s) <= limit {
		return s, ""
	}

	head := Truncate(s, limit)
	if i := strings.LastIndexByte(head, '\n'); i > 0 {
		return head[:i], s[i+1:]
	}
	return head, s[len(head):]
}
