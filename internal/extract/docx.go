package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// DOCXExtractor converts Word documents to text, rendering tables as text tables.
type DOCXExtractor struct{}

// NewDOCXExtractor creates a new DOCX extractor.
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

func (e *DOCXExtractor) Name() string { return "docx" }

func (e *DOCXExtractor) CanExtract(fileName string) bool {
	return hasSuffix(fileName, ".docx")
}

func (e *DOCXExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	markup, err := wordToHTML(doc.Editable().GetContent())
	if err != nil {
		return "", err
	}
	return htmlToText(markup)
}

// wordToHTML converts WordprocessingML into minimal HTML: paragraphs, line
// breaks and tables. Run formatting is dropped.
func wordToHTML(documentXML string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(documentXML))

	var (
		b      strings.Builder
		inText bool
		inRun  int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				b.WriteString("<p>")
			case "tbl":
				b.WriteString("<table>")
			case "tr":
				b.WriteString("<tr>")
			case "tc":
				b.WriteString("<td>")
			case "r":
				inRun++
			case "t":
				inText = true
			case "tab":
				// w:tab also defines tab stops inside paragraph properties.
				if inRun > 0 {
					b.WriteString("\t")
				}
			case "br", "cr":
				b.WriteString("<br>")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				b.WriteString("</p>")
			case "tbl":
				b.WriteString("</table>")
			case "tr":
				b.WriteString("</tr>")
			case "tc":
				b.WriteString("</td>")
			case "r":
				inRun--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				b.WriteString(html.EscapeString(string(t)))
			}
		}
	}
	return b.String(), nil
}

// htmlToText flattens an HTML fragment. Tables become text tables, paragraphs
// and line breaks become newlines, every other tag is dropped.
func htmlToText(markup string) (string, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	writeNodeText(&b, root)

	text := blankLines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(text), nil
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Table:
			b.WriteString(RenderTable(tableRows(n)))
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		case atom.Script, atom.Style:
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}

	if n.Type == html.ElementNode && n.DataAtom == atom.P {
		b.WriteByte('\n')
	}
}

// tableRows collects the rows of table, skipping rows of nested tables.
func tableRows(table *html.Node) [][]string {
	var rows [][]string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				rows = append(rows, rowCells(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)

	return rows
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, cellText(c))
		}
	}
	return cells
}

// cellText returns the text content of a cell with whitespace runs collapsed
// so a multi-paragraph cell stays on one table row.
func cellText(n *html.Node) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}
