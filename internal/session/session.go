// Package session owns the per-user lifecycle of the pairing bot: the state
// machine, the waiting pool and the chat relation. All three live behind a
// single lock in Store so that a user can never be observed queued and in a
// chat at once, or in a chat whose partner does not point back.
package session
