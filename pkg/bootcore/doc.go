// Package bootcore implements the update protocol state machine, its
// HMAC/AES-GCM verification pipeline, and the flash-program discipline
// for a secure firmware-update bootloader. It depends on three external
// collaborators supplied by the caller: a Channel for each of host_in,
// host_ack, and debug; a PageProgrammer for committing to flash; and a
// BootTrampoline for transferring control to firmware already persisted.
//
// None of the types in this package are safe for concurrent use. The
// bootloader this package models is single-threaded by construction:
// one Dispatcher drives one update transaction at a time to completion
// before returning to Idle.
package bootcore
