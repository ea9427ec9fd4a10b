package transform

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads an HTML fragment into a fragment root.
func Parse(src string) (*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	root := Fragment()
	for _, hn := range nodes {
		if n := fromHTML(hn); n != nil {
			root.Children = append(root.Children, n)
		}
	}
	return root, nil
}

func fromHTML(hn *html.Node) *Node {
	switch hn.Type {
	case html.TextNode:
		return Text(hn.Data)
	case html.ElementNode:
		n := &Node{Kind: ElementNode, Tag: hn.Data}
		for _, a := range hn.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			n.Attrs = append(n.Attrs, Attr{Key: key, Val: a.Val})
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if child := fromHTML(c); child != nil {
				n.Children = append(n.Children, child)
			}
		}
		return n
	default:
		// comments and doctypes are dropped
		return nil
	}
}

// Render writes n as HTML.
func Render(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	if n.Kind == ElementNode && n.Tag == "" {
		for _, c := range n.Children {
			if err := Render(w, c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := html.Render(w, toHTML(n)); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(n *Node) (string, error) {
	var b strings.Builder
	if err := Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

func toHTML(n *Node) *html.Node {
	switch n.Kind {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case EmbedNode:
		return embedHTML(n.Embed)
	}

	hn := elem(n.Tag, n.Attrs...)
	for _, c := range n.Children {
		if c.Kind == ElementNode && c.Tag == "" {
			for _, gc := range c.Children {
				hn.AppendChild(toHTML(gc))
			}
			continue
		}
		hn.AppendChild(toHTML(c))
	}
	return hn
}

func elem(tag string, attrs ...Attr) *html.Node {
	hn := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, a := range attrs {
		hn.Attr = append(hn.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	return hn
}

func embedHTML(e *Embed) *html.Node {
	switch e.Kind {
	case EmbedVideo:
		wrap := elem("div", Attr{"class", "embed embed-video"})
		wrap.AppendChild(elem("iframe",
			Attr{"src", "https://www.youtube-nocookie.com/embed/" + e.ID},
			Attr{"title", "YouTube video player"},
			Attr{"loading", "lazy"},
			Attr{"allow", "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"},
			Attr{"allowfullscreen", ""},
		))
		return wrap

	case EmbedSocial:
		quote := elem("blockquote", Attr{"class", "embed embed-social twitter-tweet"})
		link := elem("a", Attr{"href", "https://twitter.com/" + e.Handle + "/status/" + e.ID})
		link.AppendChild(&html.Node{Type: html.TextNode, Data: "Post by @" + e.Handle})
		quote.AppendChild(link)
		return quote

	case EmbedTip:
		attrs := []Attr{{"class", "embed embed-tip tip-widget"}}
		for _, a := range e.Attrs {
			attrs = append(attrs, Attr{"data-" + a.Key, a.Val})
		}
		return elem("div", attrs...)
	}
	return &html.Node{Type: html.TextNode, Data: e.URL}
}
