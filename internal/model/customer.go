// internal/model/customer.go
package model

import "time"

type Customer struct {
	ID        int        `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Phone     string     `db:"phone" json:"phone"`
	Email     string     `db:"email" json:"email"`
	Birthday  *time.Time `db:"birthday" json:"birthday,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
