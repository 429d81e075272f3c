package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// CrossPost records a feed item that was posted as a note
type CrossPost struct {
	ItemID    string `gorm:"primaryKey"`
	FeedURL   string `gorm:"primaryKey"`
	Account   string
	NoteOID   string
	Published time.Time
	PostedAt  time.Time
}

type CrossPosts interface {
	GetCrossPosts(feedURL string) ([]CrossPost, error)
	FindCrossPost(feedURL, itemID string) (*CrossPost, error)
	SaveCrossPost(p *CrossPost) error
}

// GetCrossPosts lists what was posted from a feed, newest first.
func (s *sqliteDatabase) GetCrossPosts(feedURL string) (posts []CrossPost, err error) {
	tx := s.db.Where(&CrossPost{FeedURL: feedURL}).Order("published desc").Find(&posts)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return posts, nil
}

func (s *sqliteDatabase) FindCrossPost(feedURL, itemID string) (*CrossPost, error) {
	var post CrossPost
	tx := s.db.First(&post, &CrossPost{FeedURL: feedURL, ItemID: itemID})
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return &post, nil
}

func (s *sqliteDatabase) SaveCrossPost(p *CrossPost) error {
	tx := s.db.Save(p)
	return tx.Error
}
