package store

import (
	"github.com/nantokaworks/ticket-lottery/internal/types"
)

var configKey = []byte("config")

// GetConfig returns the lottery configuration singleton. ErrNotFound means
// the lottery has never been initialized.
func (s *Store) GetConfig() (*types.Config, error) {
	var c types.Config
	if err := s.getJSON(configKey, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// PutConfig stores the configuration singleton.
func (s *Store) PutConfig(c *types.Config) error {
	return s.putJSON(configKey, c)
}
