// Package triage finds Chat spaces that hold an actionable, unanswered message.
//
// A scan lists the caller's spaces, keeps the ones that were active inside a
// size dependent lookback window (see Tier), orders them from the most
// intimate conversation to the largest, and then inspects the newest
// messages of each candidate until a space or message budget runs out.
//
// Small spaces (at or below the implicit mention threshold) are treated as
// conversations that expect a reply: the latest message is actionable unless
// the caller wrote it. Larger spaces only yield an item when a message tags the
// caller, either through a USER_MENTION annotation or the "@FirstName" text
// heuristic. The text heuristic can misfire on common first names; it is kept
// because annotations are not always present on messages returned by the API.
//
// At most one ActionableItem is reported per space, and a reaction from the
// caller on the message dismisses it.
//
// The engine performs no I/O of its own. Everything it needs is reached
// through the ChatClient, IdentityResolver and NameResolver interfaces, and
// every invocation of Engine.Scan is stateless apart from those collaborators.
//
// # Usage
//
//	engine := triage.NewEngine(chatClient, peopleClient, peopleClient,
//	    triage.WithLogger(logger))
//	result, err := engine.Scan(ctx, triage.DefaultOptions())
package triage
