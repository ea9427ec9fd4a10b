package transform

import (
	"regexp"
	"strings"
)

// Options controls a transform pass.
type Options struct {
	// ImageBase is the host that serves /images.
	ImageBase   string
	Placeholder string
}

// Elements whose text is never linkified or embedded.
var verbatim = map[string]bool{
	"a":        true,
	"code":     true,
	"pre":      true,
	"script":   true,
	"style":    true,
	"textarea": true,
}

// tipTag is the lower-cased tag of the tip widget component in post bodies.
const tipTag = "codewallet"

var bareURLRe = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)

const trailingPunct = ".,;:!?)"

// Transform returns a rewritten copy of n. The input tree is not modified.
func Transform(n *Node, opts Options) *Node {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	out := transform(n, opts, false)
	if len(out) == 1 {
		return out[0]
	}
	return Fragment(out...)
}

// transform returns the nodes that replace n. Most nodes map to one; a text
// run may split into text and links, and a tip component hoists its
// children after the widget.
func transform(n *Node, opts Options, inVerbatim bool) []*Node {
	if n == nil {
		return nil
	}

	switch n.Kind {
	case TextNode:
		if inVerbatim {
			return []*Node{Text(n.Text)}
		}
		return transformText(n.Text)

	case EmbedNode:
		e := *n.Embed
		e.Attrs = append([]Attr(nil), n.Embed.Attrs...)
		return []*Node{EmbedOf(e)}
	}

	if n.Tag == tipTag {
		out := []*Node{EmbedOf(Embed{
			Kind:  EmbedTip,
			Attrs: append([]Attr(nil), n.Attrs...),
		})}
		return append(out, transformChildren(n.Children, opts, inVerbatim)...)
	}

	attrs := append([]Attr(nil), n.Attrs...)
	if n.Tag == "img" {
		src, _ := n.Attr("src")
		attrs = withAttr(attrs, "src", imageURL(src, opts.ImageBase, opts.Placeholder))
	}

	children := transformChildren(n.Children, opts, inVerbatim || verbatim[n.Tag])
	if n.Tag == "p" {
		if e := soleEmbed(children); e != nil {
			return []*Node{e}
		}
	}
	return []*Node{{Kind: ElementNode, Tag: n.Tag, Attrs: attrs, Children: children}}
}

func transformChildren(in []*Node, opts Options, inVerbatim bool) []*Node {
	if len(in) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(in))
	for _, c := range in {
		out = append(out, transform(c, opts, inVerbatim)...)
	}
	return out
}

// soleEmbed returns the embed when it is the only non-blank child.
func soleEmbed(children []*Node) *Node {
	var found *Node
	for _, c := range children {
		if c.Kind == TextNode && strings.TrimSpace(c.Text) == "" {
			continue
		}
		if c.Kind != EmbedNode || found != nil {
			return nil
		}
		found = c
	}
	return found
}

// transformText upgrades a run that is exactly one embeddable URL, and
// otherwise wraps each bare URL in a link.
func transformText(s string) []*Node {
	trimmed := strings.TrimSpace(s)
	if bareURLRe.FindString(trimmed) == trimmed && trimmed != "" {
		if e, ok := embedFor(trimmed); ok {
			return []*Node{EmbedOf(e)}
		}
	}
	return linkify(s)
}

func linkify(s string) []*Node {
	locs := bareURLRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []*Node{Text(s)}
	}

	var out []*Node
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		link := strings.TrimRight(s[start:end], trailingPunct)
		if link == "http://" || link == "https://" {
			continue
		}
		end = start + len(link)

		if start > last {
			out = append(out, Text(s[last:start]))
		}
		out = append(out, Element("a", []Attr{
			{Key: "href", Val: link},
			{Key: "rel", Val: "noopener noreferrer"},
			{Key: "target", Val: "_blank"},
		}, Text(link)))
		last = end
	}
	if last < len(s) {
		out = append(out, Text(s[last:]))
	}
	return out
}
