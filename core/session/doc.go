// Package session holds the per-session mutable record of a consultation.
//
// A State owns the append-only transcript, the FIFO queue of participant
// interjections and the single pending-question slot. The Turn Sequencer
// reads and appends at well-defined checkpoints while the transport mutates
// the queue and the question slot concurrently; every mutation of a State is
// guarded by that state's own mutex.
//
// Questions follow a rendezvous contract: PostQuestion installs the question
// and returns an Answer that resolves exactly once, with the participant's
// text, or with no answer on skip, timeout or session close. Whichever of
// those happens first wins; later resolutions are no-ops.
package session
