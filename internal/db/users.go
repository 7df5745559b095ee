package db

import (
	"database/sql"
	"time"
)

type User struct {
	Address   string    `json:"address"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertUser registers a username for a wallet address, renaming on conflict.
func (db *DB) UpsertUser(address, username string) (*User, error) {
	u := &User{Address: address, Username: username, CreatedAt: time.Now().UTC()}
	_, err := db.Exec(`
		INSERT INTO users (address, username, created_at) VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET username = excluded.username`,
		u.Address, u.Username, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *DB) GetUser(address string) (*User, error) {
	var u User
	err := db.QueryRow(`SELECT address, username, created_at FROM users WHERE address = ?`, address).
		Scan(&u.Address, &u.Username, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
