package ticketing

import "errors"

var (
	// ErrAlreadyOpen is returned when a user requests a ticket while they
	// already have a non-closed ticket in the guild.
	ErrAlreadyOpen = errors.New("user already has an open ticket")

	// ErrNotATicketChannel is returned when no open or claimed ticket is
	// backed by the channel.
	ErrNotATicketChannel = errors.New("channel is not a ticket channel")

	// ErrTicketNotFound is returned when a referenced ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrAlreadyClaimed is returned when a ticket already has a claimant.
	// Claiming is a one-time event; re-claiming by the same actor is also
	// rejected.
	ErrAlreadyClaimed = errors.New("ticket is already claimed")

	// ErrNotStaff is returned when the actor lacks staff privilege.
	ErrNotStaff = errors.New("actor is not staff")

	// ErrAlreadyPresent is returned when adding a staff role or user that is
	// already recorded.
	ErrAlreadyPresent = errors.New("already present")

	// ErrArchiveFailed is returned when the transcript could not be durably
	// stored. The close is aborted and the ticket keeps its prior state.
	ErrArchiveFailed = errors.New("transcript archival failed")

	// ErrProvisioningFailed is returned when the channel collaborator could
	// not create or delete a channel.
	ErrProvisioningFailed = errors.New("channel provisioning failed")

	// ErrPersistenceFailed is returned when a store write failed. It is never
	// swallowed.
	ErrPersistenceFailed = errors.New("persistence failed")
)
