package file

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

func (fp *Persistence) ChannelByID(_ context.Context, id string) (*models.Channel, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	var channel models.Channel

	found, err := readJSON(fp.path(channelsDir, id), &channel)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("channel %s: %w", id, persistence.ErrChannelNotFound)
	}

	return &channel, nil
}

func (fp *Persistence) ConnectionByID(_ context.Context, id string) (*models.ChannelConnection, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	var connection models.ChannelConnection

	found, err := readJSON(fp.path(connectionsDir, id), &connection)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("connection %s: %w", id, persistence.ErrConnectionNotFound)
	}

	return &connection, nil
}

func (fp *Persistence) SaveChannel(_ context.Context, channel *models.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}

	if err := validateID(channel.ID); err != nil {
		return err
	}

	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = fp.now().UTC()
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	return writeJSON(fp.path(channelsDir, channel.ID), channel)
}

func (fp *Persistence) SaveConnection(_ context.Context, connection *models.ChannelConnection) error {
	if connection.ID == "" {
		connection.ID = uuid.NewString()
	}

	if err := validateID(connection.ID); err != nil {
		return err
	}

	if connection.CreatedAt.IsZero() {
		connection.CreatedAt = fp.now().UTC()
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	return writeJSON(fp.path(connectionsDir, connection.ID), connection)
}
