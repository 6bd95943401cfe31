package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/models"
)

const conversationColumns = `id, client_id, freelancer_id, client_name, freelancer_name, created_at`

// EnsureConversation returns the conversation between the two parties,
// creating it first if needed.
func (r *Repository) EnsureConversation(ctx context.Context, c models.Conversation) (models.Conversation, bool, error) {
	c.Id = uuid.NewString()
	c.CreatedAt = r.now()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (client_id, freelancer_id) DO NOTHING`,
		c.Id, c.ClientId, c.FreelancerId, c.ClientName, c.FreelancerName, c.CreatedAt,
	)
	if err != nil {
		return c, false, fmt.Errorf("sqlite.Repository.EnsureConversation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return c, false, fmt.Errorf("sqlite.Repository.EnsureConversation: %w", err)
	}

	conv, ok, err := r.ConversationByParties(ctx, c.ClientId, c.FreelancerId)
	if err != nil {
		return conv, false, fmt.Errorf("sqlite.Repository.EnsureConversation: %w", err)
	}
	if !ok {
		return conv, false, fmt.Errorf("sqlite.Repository.EnsureConversation: conversation %s/%s not found after insert", c.ClientId, c.FreelancerId)
	}
	return conv, n == 1, nil
}

func (r *Repository) ConversationByParties(ctx context.Context, clientId, freelancerId string) (models.Conversation, bool, error) {
	var c models.Conversation
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE client_id = ? AND freelancer_id = ?`, clientId, freelancerId)
	err := row.Scan(&c.Id, &c.ClientId, &c.FreelancerId, &c.ClientName, &c.FreelancerName, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	} else if err != nil {
		return c, false, fmt.Errorf("sqlite.Repository.ConversationByParties: %w", err)
	}
	return c, true, nil
}
