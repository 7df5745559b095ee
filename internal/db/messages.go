package db

import (
	"time"
)

type Message struct {
	ID            string    `json:"id"`
	DebateID      string    `json:"debate_id"`
	AuthorAddress string    `json:"author_address"`
	AuthorName    string    `json:"author_name"`
	Body          string    `json:"body"`
	Stance        *int      `json:"stance,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateMessageInput struct {
	DebateID      string
	AuthorAddress string
	AuthorName    string
	Body          string
	Stance        *int
}

func (db *DB) CreateMessage(in CreateMessageInput) (*Message, error) {
	m := &Message{
		ID:            NewID(),
		DebateID:      in.DebateID,
		AuthorAddress: in.AuthorAddress,
		AuthorName:    in.AuthorName,
		Body:          in.Body,
		Stance:        in.Stance,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, debate_id, author_address, author_name, body, stance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.DebateID, m.AuthorAddress, m.AuthorName, m.Body, m.Stance, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessages returns a debate's messages in creation order.
func (db *DB) GetMessages(debateID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, debate_id, author_address, author_name, body, stance, created_at
		FROM messages WHERE debate_id = ? ORDER BY created_at, id`, debateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DebateID, &m.AuthorAddress, &m.AuthorName,
			&m.Body, &m.Stance, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages posted to a debate.
func (db *DB) CountMessages(debateID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE debate_id = ?`, debateID).Scan(&n)
	return n, err
}

// GetParticipantAddresses returns the distinct author addresses of a debate's
// messages, in first-post order.
func (db *DB) GetParticipantAddresses(debateID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT author_address FROM messages WHERE debate_id = ?
		GROUP BY author_address ORDER BY MIN(created_at)`, debateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}
