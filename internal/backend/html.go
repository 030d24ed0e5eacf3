package backend

import (
	"bytes"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spigell/freelance-advisor/internal/logger"
)

// isHTML reports whether a response is an HTML page. Gateways are not consistent
// about the content type, so the body is sniffed as well.
func isHTML(header string, body []byte) bool {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil && mediaType == "text/html" {
			return true
		}
	}

	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<head>")) ||
		bytes.Contains(head, []byte("<body"))
}

// htmlSummary returns the page title, or the visible text when there is none.
func htmlSummary(body []byte, limit int) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return logger.TruncateForLog(string(body), limit)
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return logger.TruncateForLog(title, limit)
	}

	text := strings.Join(strings.Fields(doc.Text()), " ")
	return logger.TruncateForLog(text, limit)
}
