package render

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/bytedance/sonic"
)

type wirePayload struct {
	Content string      `json:"content"`
	Embeds  []wireEmbed `json:"embeds,omitempty"`
}

type wireEmbed struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Fields      []wireField `json:"fields"`
	Footer      wireFooter  `json:"footer"`
}

type wireField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type wireFooter struct {
	Text string `json:"text"`
}

// Encode serializes the content and embeds of msg to the webhook JSON body.
// The attachment travels separately, see EncodeMultipart.
func Encode(msg Message) ([]byte, error) {
	p := wirePayload{Content: msg.Content}
	for _, e := range msg.Embeds {
		we := wireEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
			Fields:      make([]wireField, 0, len(e.Fields)),
			Footer:      wireFooter{Text: e.Footer.Text},
		}
		for _, f := range e.Fields {
			we.Fields = append(we.Fields, wireField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		p.Embeds = append(p.Embeds, we)
	}

	data, err := sonic.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// EncodeMultipart wraps a JSON payload and one file into a
// multipart/form-data body with parts "payload_json" and "files[0]".
func EncodeMultipart(payload []byte, att *Attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="payload_json"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create payload part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("failed to write payload part: %w", err)
	}

	if att != nil {
		filename := att.Filename
		if filename == "" {
			filename = "image"
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		fh := make(textproto.MIMEHeader)
		fh.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[0]"; filename=%q`, filename))
		fh.Set("Content-Type", contentType)
		filePart, err := w.CreatePart(fh)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := filePart.Write(att.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
