package domain

// User is a workspace member. For the authenticated owner the ID equals the
// identity provider's subject claim; members added by hand get a generated id.
// Email, when present, is the secondary key used to claim invited accounts.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatarColor"`
	Picture     string `json:"picture,omitempty"`
	Email       string `json:"email,omitempty"`
}

// UserColors is the avatar palette assigned to new members.
var UserColors = []string{
	"#E24A4A", "#23B2F5", "#E350D3", "#4AE29D",
	"#F5A623", "#4A90E2", "#8B572A", "#F78DA7",
}
