package models

import "time"

// AuditLogEntry records one admin action against a tournament. Append-only.
type AuditLogEntry struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Action       string    `json:"action" db:"action"`
	Actor        string    `json:"actor" db:"actor"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
