// Package people resolves the caller's identity and other users' display
// names through the Google People API, with results cached per profile.
package people
