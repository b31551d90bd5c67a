package models

// UserFromAuth is the caller identity carried by a request.
type UserFromAuth struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
