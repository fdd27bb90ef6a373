package htmlutil

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node below node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// GetVisibleText is GetText without the contents of script, style, noscript
// and template elements.
func GetVisibleText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, true)
	return buffer.String()
}

func isInvisible(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	switch node.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, visibleOnly bool) {
	if node == nil {
		return
	}
	if visibleOnly && isInvisible(node) {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, visibleOnly)
		child = child.NextSibling
	}
}

// DocumentText returns the visible text of the whole document.
func DocumentText(doc *goquery.Document) string {
	var buffer bytes.Buffer
	for _, n := range doc.Nodes {
		getTextRecursive(n, &buffer, true)
	}
	return buffer.String()
}
