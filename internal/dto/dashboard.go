package dto

// DashboardStats is the admin dashboard payload: platform-wide entity
// counts gathered concurrently.
type DashboardStats struct {
	Users       int `json:"users"`
	Courses     int `json:"courses"`
	Lessons     int `json:"lessons"`
	Enrollments int `json:"enrollments"`
}
