package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"tipblog/internal/domain/content"
)

// Document is a cached post together with its markdown body.
type Document struct {
	Post content.Post `json:"post"`
	Body string       `json:"body"`
}

// PutList replaces the cached post list.
func (s *Store) PutList(list []content.Post) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_ = tx.DeleteBucket(bPosts)
		_ = tx.DeleteBucket(bIdxDate)

		postsB, err := tx.CreateBucket(bPosts)
		if err != nil {
			return err
		}
		idxB, err := tx.CreateBucket(bIdxDate)
		if err != nil {
			return err
		}

		for _, p := range list {
			if strings.TrimSpace(p.Slug) == "" {
				continue
			}
			pb, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := postsB.Put([]byte(p.Slug), pb); err != nil {
				return err
			}
			if err := idxB.Put(makeTimeSlugKey(p.Date, p.Slug), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the cached posts, newest first.
func (s *Store) List() ([]content.Post, error) {
	out := []content.Post{}
	err := s.db.View(func(tx *bolt.Tx) error {
		postsB := tx.Bucket(bPosts)
		idxB := tx.Bucket(bIdxDate)
		if postsB == nil || idxB == nil {
			return nil
		}
		c := idxB.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			slug := slugFromTimeSlugKey(k)
			raw := postsB.Get([]byte(slug))
			if raw == nil {
				continue
			}
			var p content.Post
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("decode post %s: %w", slug, err)
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func (s *Store) PutDocument(doc Document) error {
	if strings.TrimSpace(doc.Post.Slug) == "" {
		return errors.New("index: document without slug")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bDocs).Put([]byte(doc.Post.Slug), b)
	})
}

// GetDocument returns the last stored document for slug.
func (s *Store) GetDocument(slug string) (Document, bool, error) {
	var (
		doc   Document
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bDocs).Get([]byte(slug))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &doc)
	})
	return doc, found, err
}
