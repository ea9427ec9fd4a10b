package posts

import (
	"strings"

	"tipblog/internal/meta"
)

// Topic is a coarse classifier over post categories.
type Topic string

const (
	TopicAI   Topic = "ai"
	TopicWeb3 Topic = "web3"
	TopicDev  Topic = "dev"
)

// rule matches normalized category keys.
type rule struct {
	exact    []string
	prefix   []string
	suffix   []string
	contains []string
}

var topics = map[Topic]rule{
	TopicAI: {
		exact:    []string{"ai", "ml", "llm", "llms"},
		prefix:   []string{"ai-", "machine-learning", "deep-learning"},
		suffix:   []string{"-ai", "-ml"},
		contains: []string{"artificial-intelligence", "neural", "gpt"},
	},
	TopicWeb3: {
		exact:    []string{"web3", "crypto", "defi", "nft", "nfts", "dao"},
		prefix:   []string{"web3-", "crypto-", "defi-"},
		suffix:   []string{"-web3", "-crypto", "-chain"},
		contains: []string{"blockchain", "ethereum", "bitcoin", "solana", "smart-contract"},
	},
	TopicDev: {
		exact:    []string{"dev", "development", "programming", "code", "coding", "tutorial"},
		prefix:   []string{"dev-", "software", "web-dev"},
		suffix:   []string{"-dev", "-development", "-programming"},
		contains: []string{"engineering", "golang", "javascript", "typescript", "rust"},
	},
}

// Topics lists the known topics in display order.
func Topics() []Topic {
	return []Topic{TopicAI, TopicWeb3, TopicDev}
}

// ParseTopic normalizes s and reports whether it names a known topic.
func ParseTopic(s string) (Topic, bool) {
	t := Topic(meta.NormalizeKey(s))
	_, ok := topics[t]
	return t, ok
}

func (r rule) match(key string) bool {
	for _, e := range r.exact {
		if key == e {
			return true
		}
	}
	for _, p := range r.prefix {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	for _, s := range r.suffix {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	for _, c := range r.contains {
		if strings.Contains(key, c) {
			return true
		}
	}
	return false
}

// Matches reports whether any of categories falls under t. Unknown topics
// match nothing.
func (t Topic) Matches(categories []string) bool {
	r, ok := topics[t]
	if !ok {
		return false
	}
	for _, c := range categories {
		if r.match(meta.NormalizeKey(c)) {
			return true
		}
	}
	return false
}
