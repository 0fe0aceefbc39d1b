// Package models defines the core domain models for Splitplus.
//
// # Models
//
//   - Expense: a single cost event with a payer and per-member splits
//   - Split: one member's share of an expense
//   - Group: a set of members sharing expenses, optionally mirrored to a sheet
//   - User: a registered account
//
// # Design Principles
//
//  1. Members are referenced by opaque user ID strings, never by pointer.
//  2. Balances are not stored; they are derived from the expense list on demand.
//  3. Timestamps are Unix milliseconds so records round-trip through the sheet
//     mirror unchanged.
package models
