package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Actor is the last fetched json document of a remote actor.
type Actor struct {
	ID        string `gorm:"primaryKey"`
	Protocol  string
	Username  string
	Host      string
	Source    string // json source
	FetchedAt time.Time
}

// Fresh is true when the document was fetched within ttl.
func (a *Actor) Fresh(ttl time.Duration) bool {
	return a != nil && time.Since(a.FetchedAt) < ttl
}

type Actors interface {
	FindActor(id string) (*Actor, error)
	SaveActor(a *Actor) error
}

func (s *sqliteDatabase) FindActor(id string) (*Actor, error) {
	var actor Actor
	tx := s.db.First(&actor, &Actor{ID: id})
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return &actor, nil
}

func (s *sqliteDatabase) SaveActor(a *Actor) error {
	tx := s.db.Save(a)
	return tx.Error
}
