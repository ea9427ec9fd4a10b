// Package transform rewrites rendered post content: absolute image URLs,
// links for bare URLs and embeds for recognized video and social links.
package transform

type Kind int

const (
	TextNode Kind = iota
	ElementNode
	EmbedNode
)

func (k Kind) String() string {
	switch k {
	case TextNode:
		return "text"
	case ElementNode:
		return "element"
	case EmbedNode:
		return "embed"
	default:
		return "unknown"
	}
}

type Attr struct {
	Key string
	Val string
}

// Node is a content tree node. An ElementNode with an empty Tag is a
// fragment root and renders only its children.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
	Embed    *Embed
}

type EmbedKind string

const (
	EmbedVideo  EmbedKind = "video"
	EmbedSocial EmbedKind = "social"
	EmbedTip    EmbedKind = "tip"
)

// Embed is a third-party widget placed where a link or component was.
type Embed struct {
	Kind EmbedKind
	// ID is the video id or status id.
	ID     string
	Handle string
	URL    string
	// Attrs carries component attributes for tip embeds.
	Attrs []Attr
}

func Text(s string) *Node {
	return &Node{Kind: TextNode, Text: s}
}

func Element(tag string, attrs []Attr, children ...*Node) *Node {
	return &Node{Kind: ElementNode, Tag: tag, Attrs: attrs, Children: children}
}

func Fragment(children ...*Node) *Node {
	return &Node{Kind: ElementNode, Children: children}
}

func EmbedOf(e Embed) *Node {
	return &Node{Kind: EmbedNode, Embed: &e}
}

// Attr returns the value of key and whether it is set.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Embeds lists every embed in the tree in document order.
func (n *Node) Embeds() []Embed {
	var out []Embed
	n.Walk(func(c *Node) {
		if c.Kind == EmbedNode && c.Embed != nil {
			out = append(out, *c.Embed)
		}
	})
	return out
}

func withAttr(attrs []Attr, key, val string) []Attr {
	out := make([]Attr, len(attrs))
	copy(out, attrs)
	for i := range out {
		if out[i].Key == key {
			out[i].Val = val
			return out
		}
	}
	return append(out, Attr{Key: key, Val: val})
}
