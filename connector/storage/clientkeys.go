package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ClientKeys are the OAuth client credentials registered with one host.
// They are only valid on that host.
type ClientKeys struct {
	Host                  string `gorm:"primaryKey"`
	Protocol              string `gorm:"primaryKey"`
	ClientID              string
	ClientSecret          string
	RegistrationEndpoint  string
	AuthorizationEndpoint string
	TokenEndpoint         string
	UpdatedAt             time.Time
}

type ClientKeysStore interface {
	FindClientKeys(host, protocol string) (*ClientKeys, error)
	SaveClientKeys(k *ClientKeys) error
}

// FindClientKeys returns nil without error when the host is unknown.
func (s *sqliteDatabase) FindClientKeys(host, protocol string) (*ClientKeys, error) {
	var keys ClientKeys
	tx := s.db.First(&keys, &ClientKeys{Host: host, Protocol: protocol})
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return &keys, nil
}

func (s *sqliteDatabase) SaveClientKeys(k *ClientKeys) error {
	tx := s.db.Save(k)
	return tx.Error
}
