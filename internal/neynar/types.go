package neynar

// User is a Farcaster user profile as returned by the bulk user lookup.
type User struct {
	Fid         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Custody     string `json:"custody_address"`
}

// bulkUsersResponse is the JSON response for /v2/farcaster/user/bulk.
type bulkUsersResponse struct {
	Users []User `json:"users"`
}

// apiError represents a Neynar API error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
