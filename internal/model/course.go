// internal/model/course.go
package model

import "time"

// Course types
const (
	CourseTypeComplete   = "complete"
	CourseTypeExperience = "experience"
)

type Course struct {
	ID         int       `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	CourseType string    `db:"course_type" json:"course_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ActivityParticipation links a customer to a course session and records
// whether they purchased afterwards.
type ActivityParticipation struct {
	ID           int        `db:"id" json:"id"`
	CustomerID   int        `db:"customer_id" json:"customer_id"`
	CourseID     int        `db:"course_id" json:"course_id"`
	ActivityTime *time.Time `db:"activity_time" json:"activity_time,omitempty"`
	Purchased    bool       `db:"purchased" json:"purchased"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
