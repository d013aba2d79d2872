package export

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// ProseMirrorNode represents a node in the ProseMirror document tree
type ProseMirrorNode struct {
	Type    string            `json:"type"`
	Attrs   map[string]any    `json:"attrs"`
	Content []ProseMirrorNode `json:"content"`
	Text    string            `json:"text"`
	Marks   []ProseMirrorMark `json:"marks"`
}

// ProseMirrorMark represents a text mark (formatting)
type ProseMirrorMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs"`
}

// ContentToHTML renders stored page content. Editor documents (JSON with a
// top-level "doc" node) go through the ProseMirror renderer; anything else
// is treated as plain text with blank lines separating paragraphs.
func ContentToHTML(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") {
		var doc ProseMirrorNode
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil && doc.Type == "doc" {
			return ProseMirrorToHTML(doc)
		}
	}
	return plainTextToHTML(content)
}

func plainTextToHTML(text string) string {
	var out strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		fmt.Fprintf(&out, "<p>%s</p>\n", strings.ReplaceAll(escaped, "\n", "<br>"))
	}
	return out.String()
}

// ProseMirrorToHTML converts a ProseMirror document to HTML.
func ProseMirrorToHTML(doc ProseMirrorNode) string {
	return renderNode(doc)
}

func renderNode(node ProseMirrorNode) string {
	switch node.Type {
	case "doc":
		return renderContent(node.Content)
	case "paragraph":
		return fmt.Sprintf("<p>%s</p>\n", renderContent(node.Content))
	case "heading":
		level := 1
		if lvl, ok := node.Attrs["level"].(float64); ok && lvl >= 1 && lvl <= 6 {
			level = int(lvl)
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(node.Content), level)
	case "bulletList":
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(node.Content))
	case "orderedList":
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(node.Content))
	case "taskList":
		return fmt.Sprintf("<ul class=\"tasks\">\n%s</ul>\n", renderContent(node.Content))
	case "listItem":
		return fmt.Sprintf("<li>%s</li>\n", renderContent(node.Content))
	case "taskItem":
		box := "&#9744;"
		if checked, _ := node.Attrs["checked"].(bool); checked {
			box = "&#9745;"
		}
		return fmt.Sprintf("<li>%s %s</li>\n", box, renderContent(node.Content))
	case "blockquote":
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(node.Content))
	case "codeBlock":
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", plainText(node.Content))
	case "text":
		return renderTextWithMarks(node.Text, node.Marks)
	case "hardBreak":
		return "<br>"
	case "image":
		src, _ := node.Attrs["src"].(string)
		if !safeURL(src) {
			return ""
		}
		alt, _ := node.Attrs["alt"].(string)
		return fmt.Sprintf(`<img src="%s" alt="%s">`+"\n", html.EscapeString(src), html.EscapeString(alt))
	case "table":
		return fmt.Sprintf("<table>\n%s</table>\n", renderContent(node.Content))
	case "tableRow":
		return fmt.Sprintf("<tr>\n%s</tr>\n", renderContent(node.Content))
	case "tableCell":
		return fmt.Sprintf("<td>%s</td>\n", renderContent(node.Content))
	case "tableHeader":
		return fmt.Sprintf("<th>%s</th>\n", renderContent(node.Content))
	case "horizontalRule":
		return "<hr>\n"
	default:
		return renderContent(node.Content)
	}
}

func renderContent(nodes []ProseMirrorNode) string {
	var result strings.Builder
	for _, node := range nodes {
		result.WriteString(renderNode(node))
	}
	return result.String()
}

// plainText concatenates escaped text of nodes, ignoring marks.
func plainText(nodes []ProseMirrorNode) string {
	var result strings.Builder
	for _, node := range nodes {
		if node.Type == "text" {
			result.WriteString(html.EscapeString(node.Text))
		}
	}
	return result.String()
}

// renderTextWithMarks applies marks from the outside in.
func renderTextWithMarks(text string, marks []ProseMirrorMark) string {
	if text == "" {
		return ""
	}
	htmlText := html.EscapeString(text)

	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			htmlText = "<strong>" + htmlText + "</strong>"
		case "italic":
			htmlText = "<em>" + htmlText + "</em>"
		case "code":
			htmlText = "<code>" + htmlText + "</code>"
		case "strike":
			htmlText = "<s>" + htmlText + "</s>"
		case "underline":
			htmlText = "<u>" + htmlText + "</u>"
		case "highlight":
			htmlText = "<mark>" + htmlText + "</mark>"
		case "link":
			href, _ := marks[i].Attrs["href"].(string)
			if safeURL(href) {
				htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
			}
		}
	}
	return htmlText
}

// safeURL allows http, https and mailto links only.
func safeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	}
	return false
}
