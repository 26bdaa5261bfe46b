package entity

// Address is the postal block nested in every user record.
type Address struct {
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// User is a read-only copy of a record owned by the remote user service.
// It only changes through an explicit update call.
type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Address  Address `json:"address"`
}

// CreateUserData is the payload for create and (partial) update calls.
type CreateUserData struct {
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Address  *Address `json:"address,omitempty"`
}

// FromUser builds the edit-form payload for an existing user.
func FromUser(u *User) CreateUserData {
	addr := u.Address
	return CreateUserData{
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  &addr,
	}
}

// Page is the result of one list call: the users returned and the total the
// service reported at fetch time.
type Page struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

// Len returns the number of users carried by the page.
func (p *Page) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Users)
}
