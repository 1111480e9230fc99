package google

// DefaultOAuthScopes are the Google OAuth scopes gwsa requests.
//
// The scopes provide read-only access to:
//   - Chat: spaces, memberships, messages and reactions
//   - Contacts and directory: sender name resolution
//   - OpenID user info: the profile's email
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",

	"https://www.googleapis.com/auth/chat.spaces.readonly",
	"https://www.googleapis.com/auth/chat.memberships.readonly",
	"https://www.googleapis.com/auth/chat.messages.readonly",
	"https://www.googleapis.com/auth/chat.messages.reactions.readonly",

	"https://www.googleapis.com/auth/contacts.readonly",
	"https://www.googleapis.com/auth/contacts.other.readonly",
	"https://www.googleapis.com/auth/directory.readonly",
}
