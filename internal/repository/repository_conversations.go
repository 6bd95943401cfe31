package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/models"
)

const conversationColumns = `
		id,
		client_id,
		freelancer_id,
		client_name,
		freelancer_name,
		created_at`

func scanConversation(row rowScanner) (models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.Id, &c.ClientId, &c.FreelancerId, &c.ClientName, &c.FreelancerName, &c.CreatedAt)
	return c, err
}

// EnsureConversation returns the conversation between the two parties,
// creating it first if needed. created reports whether this call inserted it.
func (repo *Repository) EnsureConversation(ctx context.Context, c models.Conversation) (conv models.Conversation, created bool, err error) {
	insert := `
	INSERT INTO conversations (client_id, freelancer_id, client_name, freelancer_name)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (client_id, freelancer_id) DO NOTHING
	RETURNING` + conversationColumns

	conv, err = scanConversation(repo.db.QueryRowContext(ctx, insert, c.ClientId, c.FreelancerId, c.ClientName, c.FreelancerName))
	if err == nil {
		return conv, true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return conv, false, fmt.Errorf("repository.Repository.EnsureConversation: %w", err)
	}

	conv, ok, err := repo.ConversationByParties(ctx, c.ClientId, c.FreelancerId)
	if err != nil {
		return conv, false, fmt.Errorf("repository.Repository.EnsureConversation: %w", err)
	}
	if !ok {
		return conv, false, fmt.Errorf("repository.Repository.EnsureConversation: conversation %s/%s vanished after conflict", c.ClientId, c.FreelancerId)
	}
	return conv, false, nil
}

func (repo *Repository) ConversationByParties(ctx context.Context, clientId, freelancerId string) (models.Conversation, bool, error) {
	query := `
	SELECT` + conversationColumns + `
	FROM conversations
	WHERE client_id = $1 AND freelancer_id = $2
	`

	conv, err := scanConversation(repo.db.QueryRowContext(ctx, query, clientId, freelancerId))
	if errors.Is(err, sql.ErrNoRows) {
		return conv, false, nil
	} else if err != nil {
		return conv, false, fmt.Errorf("repository.Repository.ConversationByParties: %w", err)
	}
	return conv, true, nil
}
