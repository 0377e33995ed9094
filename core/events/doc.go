// Package events defines the typed event stream an observer of a
// consultation receives, together with its wire encoding.
//
// Every event encodes to a flat JSON object whose "type" field carries the
// event kind. Observers see the kinds below in state-machine order.
//
// session lifecycle
//
//   - Connected (connected): the stream is attached to a session.
//   - Status (status): progress notice with a phase tag such as
//     initialization, debate, reading_pause, question, pre_consensus or
//     consensus.
//   - Emergency (emergency): red flags found before any specialist spoke;
//     the stream ends after it.
//   - Complete (complete): terminal event of a normal or failed session.
//   - StreamError (error): unexpected failure inside the sequencer; followed
//     by Complete.
//
// specialist turns
//
//   - AgentSpeaking (agent_speaking): a specialist started generating.
//   - AgentMessage (agent_message): a specialist statement with sources.
//   - AgentError (agent_error): a specialist failed; the consultation goes on.
//   - AgentQuestion (agent_question): a specialist asked the participant a
//     follow-up question and waits up to timeoutSeconds.
//
// participant input
//
//   - PatientResponse (patient_response): an answer to a follow-up question.
//   - Interjection (interjection): acknowledgement of free-form input queued
//     for the next turn.
//
// synthesis
//
//   - Consensus (consensus): final synthesis, urgency verdict, the union of
//     sources and the specialist statements it was built from.
//   - ConsensusError (consensus_error): synthesis failed; no retry.
package events
