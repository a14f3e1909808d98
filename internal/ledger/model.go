package ledger

import "time"

// Account is the billing identity holding a credit balance
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountInput represents input for creating/updating an account
type AccountInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}
