// Package session is the adapter over the external TTL key-value service
// that holds revocable per-subject session state.
//
// Each subject owns at most one access/refresh record pair, keyed
// session:<subjectID>:access and session:<subjectID>:refresh. Record TTLs
// always mirror the provider token expiries they shadow, so local state can
// never outlive the credential behind it. The two records are written
// sequentially, never transactionally; readers of the access record alone
// never observe a half-written pair.
package session
