package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

func (s *Store) ChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	var (
		channel   models.Channel
		createdAt nullTime
	)

	err := s.queryRow(ctx, `SELECT id, name, type, is_active, created_at FROM channels WHERE id = ?`, id).
		Scan(&channel.ID, &channel.Name, &channel.Type, &channel.IsActive, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %s: %w", id, persistence.ErrChannelNotFound)
		}

		return nil, fmt.Errorf("failed to get channel %s: %w", id, err)
	}

	channel.CreatedAt = createdAt.Time

	return &channel, nil
}

func (s *Store) ConnectionByID(ctx context.Context, id string) (*models.ChannelConnection, error) {
	var (
		connection  models.ChannelConnection
		credentials []byte
		createdAt   nullTime
	)

	err := s.queryRow(ctx, `
		SELECT id, channel_id, owner, account_name, credentials, is_active, created_at
		FROM channel_connections WHERE id = ?
	`, id).Scan(
		&connection.ID,
		&connection.ChannelID,
		&connection.Owner,
		&connection.AccountName,
		&credentials,
		&connection.IsActive,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("connection %s: %w", id, persistence.ErrConnectionNotFound)
		}

		return nil, fmt.Errorf("failed to get connection %s: %w", id, err)
	}

	if err := decodeJSON(credentials, &connection.Credentials); err != nil {
		return nil, err
	}

	connection.CreatedAt = createdAt.Time

	return &connection, nil
}

func (s *Store) SaveChannel(ctx context.Context, channel *models.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}

	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = s.now().UTC()
	}

	_, err := s.exec(ctx, `
		INSERT INTO channels (id, name, type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			is_active = excluded.is_active
	`,
		channel.ID,
		channel.Name,
		channel.Type,
		channel.IsActive,
		s.dialect.Time(channel.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save channel %s: %w", channel.ID, err)
	}

	return nil
}

func (s *Store) SaveConnection(ctx context.Context, connection *models.ChannelConnection) error {
	if connection.ID == "" {
		connection.ID = uuid.NewString()
	}

	if connection.CreatedAt.IsZero() {
		connection.CreatedAt = s.now().UTC()
	}

	credentials, err := encodeJSON(connection.Credentials)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, `
		INSERT INTO channel_connections (id, channel_id, owner, account_name, credentials, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			channel_id = excluded.channel_id,
			owner = excluded.owner,
			account_name = excluded.account_name,
			credentials = excluded.credentials,
			is_active = excluded.is_active
	`,
		connection.ID,
		connection.ChannelID,
		connection.Owner,
		connection.AccountName,
		credentials,
		connection.IsActive,
		s.dialect.Time(connection.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save connection %s: %w", connection.ID, err)
	}

	return nil
}
