// Package core defines the domain model and the consistency rules shared by
// every layer of agora.
//
// # Architecture Overview
//
// The core package provides:
//   - Domain types (User, Question, Answer, Notification)
//   - The vote state vocabulary (VoteType, VoteState, VoteTarget)
//   - The reputation catalog and the self-accept policy
//   - Sentinel errors for the business-rule taxonomy
//   - The authenticated Actor handed in by the identity layer
//
// # Invariants
//
// The service package enforces these after every operation:
//  1. A voter appears in at most one of an entity's two vote sets
//  2. Nobody votes on their own question or answer
//  3. Question.AcceptedAnswer names a visible, accepted answer of that question
//  4. At most one answer per question has IsAccepted set
//  5. A deleted answer is absent from its question's answer list
//  6. A deleted question has only deleted answers
//  7. Each reputation delta lands exactly once per transition
//
// Entities are mutated through conditional single-document updates; there are
// no multi-document transactions. See service/ for the step ordering.
package core
