package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const fixture = `<html><body>
<table id="a"><tr><td class="label x">Booking No:</td><td>  ONE </td></tr></table>
<table id="b"><tr><td>inner</td></tr></table>
<table id="stop"><tr><td>stop here</td></tr></table>
<table id="c"><tr><td>after stop</td></tr></table>
<script>var ignored = "Booking No:";</script>
</body></html>`

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return Attr(n, "id") == id
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := ParseString("  \n\t")
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestMalformed(t *testing.T) {
	doc, err := ParseString(`<table><tr><td>unterminated <b>bold</table></div></span>`)
	require.NoError(t, err)
	require.Len(t, doc.Elements("table"), 1)
	require.Empty(t, doc.FindAll("table", byID("missing")))
	require.Nil(t, doc.FindNext(doc.Elements("table")[0], "table", nil))
}

func TestFindAllAndScan(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	tables := doc.Elements("table")
	require.Len(t, tables, 4)

	first := doc.FindAll("table", byID("a"))
	require.Len(t, first, 1)

	next := doc.FindNext(first[0], "table", nil)
	require.Equal(t, "b", Attr(next, "id"))

	found := doc.ScanAfter(first[0], "table", byID("c"), byID("stop"))
	require.Nil(t, found)

	found = doc.ScanAfter(first[0], "table", byID("b"), byID("stop"))
	require.Equal(t, "b", Attr(found, "id"))
}

func TestTextHelpers(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	labels := doc.Select(nil, "td.label")
	require.Len(t, labels, 1)
	require.True(t, HasClass(labels[0], "x"))
	require.False(t, HasClass(labels[0], "lab"))

	value := SiblingAfter(labels[0], "td")
	require.Equal(t, "ONE", TextOf(value, " "))

	table := EnclosingTag(labels[0], "table")
	require.Equal(t, "a", Attr(table, "id"))
	require.Equal(t, "Booking No:\nONE", TextOf(table, "\n"))

	scoped := doc.Select(doc.Elements("table")[1], "td")
	require.Len(t, scoped, 1)
	require.Equal(t, "inner", CleanText(scoped[0]))

	require.NotContains(t, doc.Text(" "), "ignored")
	nodes := doc.TextNodes(func(s string) bool { return s == "inner" })
	require.Len(t, nodes, 1)
	require.Equal(t, "td", nodes[0].Parent.Data)
}
