package repository

import (
	"database/sql"

	"github.com/craftcrm/campaign-engine/internal/model"
)

// CustomerRepositoryInterface defines the customer lookups the resolver needs
type CustomerRepositoryInterface interface {
	GetByID(id int) (*model.Customer, error)
	GetByEmail(email string) (*model.Customer, error)
	ListFiltered(courseType, purchaseStatus string) ([]model.Customer, error)
}

// CustomerRepository is the concrete implementation
type CustomerRepository struct {
	DB *sql.DB
}

// GetByID fetches a customer by ID, nil when not found
func (r *CustomerRepository) GetByID(id int) (*model.Customer, error) {
	query := `
        SELECT id, name, phone, email, birthday, created_at
        FROM customers
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var c model.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Birthday, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetByEmail fetches a customer by normalized email, nil when not found
func (r *CustomerRepository) GetByEmail(email string) (*model.Customer, error) {
	query := `
        SELECT id, name, phone, email, birthday, created_at
        FROM customers
        WHERE LOWER(email) = $1
    `
	row := r.DB.QueryRow(query, email)

	var c model.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Birthday, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListFiltered returns every customer with an email address whose
// participations match the course-type and purchase-status predicates.
// "all" on both sides skips the participation join entirely.
func (r *CustomerRepository) ListFiltered(courseType, purchaseStatus string) ([]model.Customer, error) {
	query := `
        SELECT id, name, phone, email, birthday, created_at
        FROM customers
        WHERE email <> ''
    `
	args := []interface{}{}

	if courseType != model.CourseFilterAll || purchaseStatus != model.PurchaseFilterAll {
		sub := `
            SELECT DISTINCT ap.customer_id
            FROM activity_participations ap
            JOIN courses c ON ap.course_id = c.id
            WHERE 1=1
        `
		if courseType != model.CourseFilterAll {
			sub += ` AND c.course_type = $1`
			args = append(args, courseType)
		}
		switch purchaseStatus {
		case model.PurchaseFilterPurchased:
			sub += ` AND ap.purchased = TRUE`
		case model.PurchaseFilterNotPurchased:
			sub += ` AND ap.purchased = FALSE`
		}
		query += ` AND id IN (` + sub + `)`
	}

	query += ` ORDER BY id`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Birthday, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
