package dto

// IsAuthResponse is returned by GET /api/auth/is-auth.
type IsAuthResponse struct {
	Success bool `json:"success"`
}

// UserDataView mirrors the profile payload of GET /api/user/data.
type UserDataView struct {
	Name              string `json:"name"`
	IsAccountVerified bool   `json:"isAccountVerified"`
}

type UserDataResponse struct {
	Success  bool         `json:"success"`
	UserData UserDataView `json:"userData"`
}
