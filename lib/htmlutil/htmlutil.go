package htmlutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var ErrEmptyDocument = errors.New("htmlutil: empty document")

// Document is a parsed page with its elements flattened into document order.
// All queries tolerate malformed markup: no match is reported as an empty
// result, never as an error.
type Document struct {
	query    *goquery.Document
	elements []*html.Node
	position map[*html.Node]int
}

func Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyDocument
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(raw))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return NewDocument(doc), nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func NewDocument(doc *goquery.Document) *Document {
	d := &Document{
		query:    doc,
		position: map[*html.Node]int{},
	}
	for _, root := range doc.Nodes {
		d.flatten(root)
	}
	return d
}

func (d *Document) flatten(node *html.Node) {
	if node.Type == html.ElementNode {
		d.position[node] = len(d.elements)
		d.elements = append(d.elements, node)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		d.flatten(child)
	}
}

func (d *Document) Root() *html.Node {
	if len(d.query.Nodes) == 0 {
		return nil
	}
	return d.query.Nodes[0]
}

// Elements returns every element with the given tag in document order, an
// empty tag matches all elements.
func (d *Document) Elements(tag string) []*html.Node {
	var out []*html.Node
	for _, n := range d.elements {
		if tag == "" || n.Data == tag {
			out = append(out, n)
		}
	}
	return out
}

func (d *Document) FindAll(tag string, predicate func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, n := range d.Elements(tag) {
		if predicate == nil || predicate(n) {
			out = append(out, n)
		}
	}
	return out
}

// FindNext returns the first element with the given tag that starts after
// `from` in document order and satisfies predicate.
func (d *Document) FindNext(from *html.Node, tag string, predicate func(*html.Node) bool) *html.Node {
	return d.ScanAfter(from, tag, predicate, nil)
}

// ScanAfter walks the flattened element list forward from `from`, returning
// the first element with the given tag that satisfies match. The scan gives up
// (returning nil) at the first element that satisfies stop.
func (d *Document) ScanAfter(from *html.Node, tag string, match, stop func(*html.Node) bool) *html.Node {
	start, ok := d.position[from]
	if !ok {
		return nil
	}
	for _, n := range d.elements[start+1:] {
		if tag != "" && n.Data != tag {
			continue
		}
		if stop != nil && stop(n) {
			return nil
		}
		if match == nil || match(n) {
			return n
		}
	}
	return nil
}

// Select runs a CSS selector beneath scope.
func (d *Document) Select(scope *html.Node, selector string) []*html.Node {
	if scope == nil {
		return d.query.Find(selector).Nodes
	}
	return goquery.NewDocumentFromNode(scope).Find(selector).Nodes
}

// TextNodes returns every text node whose content satisfies predicate.
func (d *Document) TextNodes(predicate func(string) bool) []*html.Node {
	var out []*html.Node
	for _, root := range d.query.Nodes {
		collectTextNodes(root, predicate, &out)
	}
	return out
}

func collectTextNodes(node *html.Node, predicate func(string) bool, out *[]*html.Node) {
	if skipContents(node) {
		return
	}
	if node.Type == html.TextNode && predicate(node.Data) {
		*out = append(*out, node)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextNodes(child, predicate, out)
	}
}

// Text is the text of the whole page, see TextOf.
func (d *Document) Text(sep string) string {
	return TextOf(d.Root(), sep)
}

func skipContents(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	switch node.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil || skipContents(node) {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// TextOf trims every text node beneath node, drops the empty ones and joins
// the rest with sep.
func TextOf(node *html.Node, sep string) string {
	var parts []string
	collectText(node, &parts)
	return strings.Join(parts, sep)
}

func collectText(node *html.Node, parts *[]string) {
	if node == nil || skipContents(node) {
		return
	}
	if node.Type == html.TextNode {
		text := strings.TrimSpace(removeNonPrintable(node.Data))
		if text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText collapses runs of whitespace in the node's text.
func CleanText(node *html.Node) string {
	text := strings.TrimSpace(TextOf(node, " "))
	return innerWhitespace.ReplaceAllString(text, " ")
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// SiblingAfter returns the next element sibling with the given tag.
func SiblingAfter(node *html.Node, tag string) *html.Node {
	if node == nil {
		return nil
	}
	for n := node.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && (tag == "" || n.Data == tag) {
			return n
		}
	}
	return nil
}

// EnclosingTag returns the nearest strict ancestor with the given tag.
func EnclosingTag(node *html.Node, tag string) *html.Node {
	if node == nil {
		return nil
	}
	for n := node.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
	}
	return nil
}

func Attr(node *html.Node, key string) string {
	if node == nil {
		return ""
	}
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func HasClass(node *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(node, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Children returns the element children of node with the given tag.
func Children(node *html.Node, tag string) []*html.Node {
	if node == nil {
		return nil
	}
	var out []*html.Node
	for n := node.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && (tag == "" || n.Data == tag) {
			out = append(out, n)
		}
	}
	return out
}
