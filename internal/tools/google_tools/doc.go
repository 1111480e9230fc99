// Package google_tools provides the MCP tools that authorize a credential
// profile against Google.
//
// The flow mirrors the CLI's "auth url" and "auth save" commands:
//
//  1. google_get_auth_url returns the consent URL for a profile.
//  2. The user signs in and copies the authorization code.
//  3. google_save_auth_code exchanges the code, stores the token under the
//     profile and validates it with a People API call.
package google_tools
